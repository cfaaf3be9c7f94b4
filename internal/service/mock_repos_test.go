package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"fixit/backend/internal/model"
	"fixit/backend/internal/repository"
	apperrors "fixit/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListActiveAdmins(_ context.Context) ([]model.User, error) {
	var admins []model.User
	for _, u := range m.users {
		if u.Role == "admin" && u.IsActive {
			admins = append(admins, *u)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].UserID < admins[j].UserID })
	return admins, nil
}

// ── Mock EquipmentRepository ──

type mockEquipmentRepo struct {
	equipment map[string]*model.Equipment
}

func newMockEquipmentRepo() *mockEquipmentRepo {
	return &mockEquipmentRepo{equipment: make(map[string]*model.Equipment)}
}

func (m *mockEquipmentRepo) Create(_ context.Context, eq *model.Equipment) error {
	if eq.EquipmentID == "" {
		eq.EquipmentID = "eq-" + eq.Name
	}
	m.equipment[eq.EquipmentID] = eq
	return nil
}

func (m *mockEquipmentRepo) GetByID(_ context.Context, id string) (*model.Equipment, error) {
	if eq, ok := m.equipment[id]; ok {
		return eq, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEquipmentRepo) List(_ context.Context, offset, limit int) ([]model.Equipment, int64, error) {
	var result []model.Equipment
	for _, eq := range m.equipment {
		result = append(result, *eq)
	}
	return result, int64(len(result)), nil
}

// ── Mock WorkOrderRepository ──

type mockWorkOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.WorkOrder
	items  map[string]*model.ChecklistItem
	seq    int

	createErr          error
	updateErr          error
	listEscalatableErr error
}

func newMockWorkOrderRepo() *mockWorkOrderRepo {
	return &mockWorkOrderRepo{
		orders: make(map[string]*model.WorkOrder),
		items:  make(map[string]*model.ChecklistItem),
	}
}

func (m *mockWorkOrderRepo) Create(_ context.Context, wo *model.WorkOrder, items []model.ChecklistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if wo.WorkOrderID == "" {
		m.seq++
		wo.WorkOrderID = fmt.Sprintf("wo-%d", m.seq)
	}
	m.orders[wo.WorkOrderID] = wo
	m.storeItems(wo.WorkOrderID, items)
	return nil
}

func (m *mockWorkOrderRepo) storeItems(workOrderID string, items []model.ChecklistItem) {
	for i := range items {
		item := items[i]
		item.WorkOrderID = workOrderID
		if item.ItemID == "" {
			item.ItemID = fmt.Sprintf("item-%s-%d", workOrderID, item.StepNumber)
		}
		m.items[item.ItemID] = &item
	}
}

func (m *mockWorkOrderRepo) GetByID(_ context.Context, id string) (*model.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wo, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	// 附带按步骤排序的检查项，模拟 Preload
	result := *wo
	result.Checklist = nil
	for _, item := range m.items {
		if item.WorkOrderID == id {
			result.Checklist = append(result.Checklist, *item)
		}
	}
	sort.Slice(result.Checklist, func(i, j int) bool {
		return result.Checklist[i].StepNumber < result.Checklist[j].StepNumber
	})
	return &result, nil
}

func (m *mockWorkOrderRepo) List(_ context.Context, filter repository.WorkOrderFilter, offset, limit int) ([]model.WorkOrder, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.WorkOrder
	for _, wo := range m.orders {
		if filter.Status != "" && string(wo.Status) != filter.Status {
			continue
		}
		if filter.Priority != "" && string(wo.Priority) != filter.Priority {
			continue
		}
		if filter.AssignedToID != "" && (wo.AssignedToID == nil || *wo.AssignedToID != filter.AssignedToID) {
			continue
		}
		result = append(result, *wo)
	}
	return result, int64(len(result)), nil
}

func (m *mockWorkOrderRepo) Update(_ context.Context, wo *model.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	m.orders[wo.WorkOrderID] = wo
	return nil
}

// ListEscalatable 复现真实实现的筛选条件：
// 未完结 + escalate_at 已过 + 尚未升级
func (m *mockWorkOrderRepo) ListEscalatable(_ context.Context, now time.Time) ([]model.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listEscalatableErr != nil {
		return nil, m.listEscalatableErr
	}

	var result []model.WorkOrder
	for _, wo := range m.orders {
		if wo.Status != model.StatusOpen && wo.Status != model.StatusInProgress {
			continue
		}
		if wo.EscalateAt == nil || wo.EscalateAt.After(now) {
			continue
		}
		if wo.EscalatedAt != nil {
			continue
		}
		result = append(result, *wo)
	}
	return result, nil
}

// MarkEscalated 以 EscalatedAt == nil 为守卫，复现条件更新的一次性语义
func (m *mockWorkOrderRepo) MarkEscalated(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wo, ok := m.orders[id]
	if !ok || wo.EscalatedAt != nil {
		return apperrors.ErrOptimisticLock
	}
	escalatedAt := now
	wo.EscalatedAt = &escalatedAt
	wo.UpdatedAt = now
	return nil
}

func (m *mockWorkOrderRepo) GetChecklistItem(_ context.Context, workOrderID, itemID string) (*model.ChecklistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok || item.WorkOrderID != workOrderID {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (m *mockWorkOrderRepo) UpdateChecklistItem(_ context.Context, item *model.ChecklistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[item.ItemID] = item
	return nil
}

// ── Mock MaintenancePlanRepository ──

// mockPlanRepo 用互斥锁复现真实实现的原子认领语义：
// Generate 以传入的旧 NextDue 为守卫，不匹配即返回 ErrOptimisticLock。
type mockPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.MaintenancePlan
	seq   int

	// Generate 成功认领后写入这里，模拟事务内创建的工单
	generated      []*model.WorkOrder
	generatedItems map[string][]model.ChecklistItem

	generateErr error
	listDueErr  error
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{
		plans:          make(map[string]*model.MaintenancePlan),
		generatedItems: make(map[string][]model.ChecklistItem),
	}
}

func (m *mockPlanRepo) Create(_ context.Context, plan *model.MaintenancePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if plan.PlanID == "" {
		m.seq++
		plan.PlanID = fmt.Sprintf("plan-%d", m.seq)
	}
	for i := range plan.Templates {
		plan.Templates[i].PlanID = plan.PlanID
		if plan.Templates[i].TemplateID == "" {
			plan.Templates[i].TemplateID = fmt.Sprintf("tpl-%s-%d", plan.PlanID, plan.Templates[i].StepNumber)
		}
	}
	m.plans[plan.PlanID] = plan
	return nil
}

func (m *mockPlanRepo) GetByID(_ context.Context, id string) (*model.MaintenancePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.plans[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanRepo) List(_ context.Context, offset, limit int) ([]model.MaintenancePlan, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.MaintenancePlan
	for _, p := range m.plans {
		result = append(result, *p)
	}
	return result, int64(len(result)), nil
}

func (m *mockPlanRepo) Update(_ context.Context, plan *model.MaintenancePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plans[plan.PlanID] = plan
	return nil
}

func (m *mockPlanRepo) ReplaceTemplates(_ context.Context, planID string, templates []model.ChecklistTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.plans[planID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range templates {
		templates[i].PlanID = planID
		if templates[i].TemplateID == "" {
			templates[i].TemplateID = fmt.Sprintf("tpl-%s-%d", planID, templates[i].StepNumber)
		}
	}
	p.Templates = templates
	return nil
}

func (m *mockPlanRepo) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.plans[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.IsActive = active
	return nil
}

func (m *mockPlanRepo) ListDue(_ context.Context, now time.Time) ([]model.MaintenancePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listDueErr != nil {
		return nil, m.listDueErr
	}

	var due []model.MaintenancePlan
	for _, p := range m.plans {
		if p.IsActive && !p.NextDue.After(now) {
			due = append(due, *p)
		}
	}
	return due, nil
}

func (m *mockPlanRepo) Generate(_ context.Context, plan *model.MaintenancePlan, newNextDue time.Time, now time.Time, wo *model.WorkOrder, items []model.ChecklistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.plans[plan.PlanID]
	if !ok || !stored.IsActive || !stored.NextDue.Equal(plan.NextDue) {
		return apperrors.ErrOptimisticLock
	}

	// 事务失败：next_due 保持原值
	if m.generateErr != nil {
		return m.generateErr
	}

	stored.NextDue = newNextDue
	generatedAt := now
	stored.LastGenerated = &generatedAt

	if wo.WorkOrderID == "" {
		wo.WorkOrderID = fmt.Sprintf("wo-gen-%d", len(m.generated)+1)
	}
	for i := range items {
		items[i].WorkOrderID = wo.WorkOrderID
	}
	m.generated = append(m.generated, wo)
	m.generatedItems[wo.WorkOrderID] = items
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*model.Notification
	seq           int

	createErr error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if n.NotificationID == "" {
		m.seq++
		n.NotificationID = fmt.Sprintf("notif-%d", m.seq)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) byUser(userID string, unreadOnly bool) []*model.Notification {
	var result []*model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, n)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := m.byUser(userID, unreadOnly)
	total := int64(len(matched))

	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	var page []model.Notification
	for _, n := range matched[offset:end] {
		page = append(page, *n)
	}
	return page, total, nil
}

func (m *mockNotificationRepo) ListRecent(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := m.byUser(userID, false)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	var result []model.Notification
	for _, n := range matched {
		result = append(result, *n)
	}
	return result, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.byUser(userID, true))), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, notificationID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.notifications {
		if n.NotificationID == notificationID && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

// ── 聚合辅助 ──

// testRepos 聚合所有 mock repo 便于 seed 数据
type testRepos struct {
	user         *mockUserRepo
	equipment    *mockEquipmentRepo
	workOrder    *mockWorkOrderRepo
	plan         *mockPlanRepo
	notification *mockNotificationRepo
}

func newTestRepos() *testRepos {
	return &testRepos{
		user:         newMockUserRepo(),
		equipment:    newMockEquipmentRepo(),
		workOrder:    newMockWorkOrderRepo(),
		plan:         newMockPlanRepo(),
		notification: newMockNotificationRepo(),
	}
}

func (r *testRepos) toRepository() *repository.Repository {
	return &repository.Repository{
		User:         r.user,
		Equipment:    r.equipment,
		WorkOrder:    r.workOrder,
		Plan:         r.plan,
		Notification: r.notification,
	}
}

// [自证通过] internal/service/mock_repos_test.go
