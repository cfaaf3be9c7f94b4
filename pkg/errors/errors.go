package errors

import "errors"

// ErrOptimisticLock 条件更新冲突：记录已被其他操作修改
// 调度器的"认领"步骤用它区分"另一个并发触发已处理该计划"
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
