package ingest

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/rushteam/revrec/core"
)

const corpus = `product/productId: B003AI2VGA
review/userId: A141HP4LYPWMSR
review/profileName: Brian E. Erland "Rainbow Sphinx"
review/helpfulness: 7/7
review/score: 3.0
review/time: 1182729600
review/summary: "There Is So Much Darkness Now ~ Come For The Miracle"
review/text: Synopsis: On the daily trek from Juarez...

product/productId: B003AI2VGA
review/userId: A328S9RN3U5M68
review/score: 4.0

product/productId: B00006HAXW
review/userId: A1RSDE90N6RSZF
review/score: 5.0
`

func readAll(t *testing.T, rr *ReviewReader) []core.Review {
	t.Helper()
	var out []core.Review
	for {
		r, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, r)
	}
}

func TestReviewReader_Plain(t *testing.T) {
	rr, err := NewReviewReader(strings.NewReader(corpus))
	if err != nil {
		t.Fatal(err)
	}
	got := readAll(t, rr)
	want := []core.Review{
		{UserID: "A141HP4LYPWMSR", ItemID: "B003AI2VGA", Score: 3},
		{UserID: "A328S9RN3U5M68", ItemID: "B003AI2VGA", Score: 4},
		{UserID: "A1RSDE90N6RSZF", ItemID: "B00006HAXW", Score: 5},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d reviews, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("review[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if rr.Skipped() != 0 {
		t.Errorf("Skipped() = %d, want 0", rr.Skipped())
	}
}

func TestReviewReader_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(corpus))
	_ = zw.Close()

	rr, err := NewReviewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer rr.Close()

	if got := readAll(t, rr); len(got) != 3 {
		t.Errorf("gzip corpus: got %d reviews, want 3", len(got))
	}
}

func TestReviewReader_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		reason  string
		skipped int
	}{
		{
			name:    "bad score",
			input:   "product/productId: p\nreview/userId: u\nreview/score: five\n",
			want:    0,
			reason:  SkipBadScore,
			skipped: 1,
		},
		{
			name:    "missing user",
			input:   "product/productId: p\nreview/score: 4.0\n",
			want:    0,
			reason:  SkipMissingField,
			skipped: 1,
		},
		{
			name:    "record without score followed by a good one",
			input:   "product/productId: p\nreview/userId: u\n\nproduct/productId: q\nreview/userId: v\nreview/score: 2.0\n",
			want:    1,
			reason:  SkipMissingField,
			skipped: 1,
		},
		{
			name:    "truncated at end",
			input:   "product/productId: p\nreview/userId: u\nreview/score: 1.0\nproduct/productId: q",
			want:    1,
			reason:  SkipMissingField,
			skipped: 1,
		},
		{
			name:    "crlf line endings",
			input:   "product/productId: p\r\nreview/userId: u\r\nreview/score: 1.0\r\n",
			want:    1,
			reason:  SkipMissingField,
			skipped: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, err := NewReviewReader(strings.NewReader(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if got := readAll(t, rr); len(got) != tt.want {
				t.Errorf("got %d reviews, want %d: %+v", len(got), tt.want, got)
			}
			if got := rr.SkippedBy(tt.reason); got != tt.skipped {
				t.Errorf("SkippedBy(%s) = %d, want %d", tt.reason, got, tt.skipped)
			}
		})
	}
}

func TestReviewReader_BadGzip(t *testing.T) {
	_, err := NewReviewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}))
	if !core.IsInvalidInput(err) {
		t.Errorf("NewReviewReader(corrupt gzip) error = %v, want INVALID_INPUT", err)
	}
}

func TestReviewReader_FeedsAdapter(t *testing.T) {
	rr, _ := NewReviewReader(strings.NewReader(corpus))
	a := NewAdapter()
	if _, err := a.Consume(t.Context(), rr); err != nil {
		t.Fatal(err)
	}
	st := a.Dataset().Stats
	if st.TotalReviews != 3 || st.TotalUsers != 3 || st.TotalItems != 2 {
		t.Errorf("Stats = %+v", st)
	}
}
