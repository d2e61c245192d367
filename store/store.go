// Package store 提供 core.Store 的实现：MemoryStore（进程内）与 RedisStore（共享缓存）。
//
// 接口定义在 core 包，此包只包含实现：
//
//	var s core.Store = store.NewMemoryStore()
package store
