// Package resourcemgr 实现上传槽位准入控制
//
// UploadSlots 跟踪正在进行的上传，并回答"还能不能再向某个地址上传"：
//   - 总上传数上限（MaxUploads）
//   - 单地址上传数上限（MaxUploadsPerHost）
//   - 传输表锁带超时获取，锁竞争时直接拒绝而不是阻塞
//
// # 快速开始
//
//	slots, _ := resourcemgr.NewUploadSlots(resourcemgr.DefaultConfig())
//
//	// 推送前准入判定（最多等待 250ms）
//	if !slots.TryReserveSlot(addr, 250*time.Millisecond) {
//	    return // 忙
//	}
//
//	// 上传开始 / 结束时维护计数
//	if err := slots.BeginUpload(addr); err == nil {
//	    defer slots.EndUpload(addr)
//	}
package resourcemgr
