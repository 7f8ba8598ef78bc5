package tests

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ecommerce/pkg/domain/model"
	"ecommerce/pkg/domain/service"
)

type mockEventDispatcher struct {
	events []service.Event
}

func (m *mockEventDispatcher) Dispatch(event service.Event) error {
	m.events = append(m.events, event)
	return nil
}
func (m *mockEventDispatcher) Reset() {
	m.events = nil
}

func eventsOf[T service.Event](events []service.Event) []T {
	var out []T
	for _, e := range events {
		if typed, ok := e.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func paginate[T any](items []T, page model.Page) *model.Paginated[T] {
	total := int64(len(items))
	start := int(page.Skip())
	if start > len(items) {
		start = len(items)
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return model.NewPaginated(items[start:end], page, total)
}

type mockUserRepository struct {
	store map[primitive.ObjectID]*model.User
}

func (m *mockUserRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }
func (m *mockUserRepository) Create(_ context.Context, u *model.User) error {
	clone := *u
	m.store[u.ID] = &clone
	return nil
}
func (m *mockUserRepository) Update(_ context.Context, u *model.User) error {
	if _, ok := m.store[u.ID]; !ok {
		return model.ErrUserNotFound
	}
	clone := *u
	m.store[u.ID] = &clone
	return nil
}
func (m *mockUserRepository) Find(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	if u, ok := m.store[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, model.ErrUserNotFound
}
func (m *mockUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.store {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, model.ErrUserNotFound
}

type mockOtpRepository struct {
	store map[primitive.ObjectID]*model.Otp
}

func (m *mockOtpRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }
func (m *mockOtpRepository) Create(_ context.Context, o *model.Otp) error {
	clone := *o
	m.store[o.ID] = &clone
	return nil
}
func (m *mockOtpRepository) FindActive(_ context.Context, userID primitive.ObjectID, purpose model.OtpPurpose, now time.Time) (*model.Otp, error) {
	for _, o := range m.store {
		if o.CreatedBy == userID && o.Purpose == purpose && !o.Expired(now) {
			clone := *o
			return &clone, nil
		}
	}
	return nil, model.ErrOtpNotFound
}
func (m *mockOtpRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(m.store, id)
	return nil
}

// expireAll moves every stored otp past its expiry.
func (m *mockOtpRepository) expireAll() {
	for _, o := range m.store {
		o.ExpiresAt = time.Now().UTC().Add(-time.Second)
	}
}

type mockPasswordManager struct{}

func (mockPasswordManager) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (mockPasswordManager) Check(hashed, plain string) (bool, error) {
	return hashed == "hashed:"+plain, nil
}

type mockOtpGenerator struct{ code string }

func (m mockOtpGenerator) Generate() (string, error) { return m.code, nil }

type mockTokenIssuer struct{}

func (mockTokenIssuer) Issue(user *model.User) (*model.TokenPair, error) {
	return &model.TokenPair{
		AccessToken:  "access:" + user.ID.Hex(),
		RefreshToken: "refresh:" + user.ID.Hex(),
	}, nil
}
func (mockTokenIssuer) Verify(_ string, kind model.TokenKind, token string) (*model.TokenClaims, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 || parts[0] != string(kind) {
		return nil, model.ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return nil, model.ErrInvalidToken
	}
	return &model.TokenClaims{UserID: id, Kind: kind, IssuedAt: time.Now().UTC().Add(time.Second)}, nil
}
func (mockTokenIssuer) Prefix(role model.UserRole) string {
	if role == model.RoleAdmin {
		return "admin"
	}
	return "bearer"
}

type mockIdentityVerifier struct {
	identity *model.ExternalIdentity
}

func (m *mockIdentityVerifier) Verify(_ context.Context, idToken string) (*model.ExternalIdentity, error) {
	if m.identity == nil || idToken == "" {
		return nil, model.ErrInvalidToken
	}
	return m.identity, nil
}

type mockBrandRepository struct {
	store map[primitive.ObjectID]*model.Brand
}

func (m *mockBrandRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }
func (m *mockBrandRepository) Create(_ context.Context, b *model.Brand) error {
	clone := *b
	m.store[b.ID] = &clone
	return nil
}
func (m *mockBrandRepository) Update(_ context.Context, b *model.Brand) error {
	if _, ok := m.store[b.ID]; !ok {
		return model.ErrBrandNotFound
	}
	clone := *b
	m.store[b.ID] = &clone
	return nil
}
func (m *mockBrandRepository) Find(_ context.Context, id primitive.ObjectID, includeDeleted bool) (*model.Brand, error) {
	b, ok := m.store[id]
	if !ok || (b.Frozen() && !includeDeleted) {
		return nil, model.ErrBrandNotFound
	}
	clone := *b
	return &clone, nil
}
func (m *mockBrandRepository) FindByName(_ context.Context, name string) (*model.Brand, error) {
	for _, b := range m.store {
		if b.Name == name {
			clone := *b
			return &clone, nil
		}
	}
	return nil, model.ErrBrandNotFound
}
func (m *mockBrandRepository) CountExisting(_ context.Context, ids []primitive.ObjectID) (int, error) {
	count := 0
	for _, id := range ids {
		if b, ok := m.store[id]; ok && !b.Frozen() {
			count++
		}
	}
	return count, nil
}
func (m *mockBrandRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(m.store, id)
	return nil
}
func (m *mockBrandRepository) visible() []model.Brand {
	var out []model.Brand
	for _, b := range m.store {
		if !b.Frozen() {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
func (m *mockBrandRepository) List(_ context.Context, search string, page model.Page) (*model.Paginated[model.Brand], error) {
	var out []model.Brand
	for _, b := range m.visible() {
		if search == "" || strings.Contains(strings.ToLower(b.Name+" "+b.Slogan), strings.ToLower(search)) {
			out = append(out, b)
		}
	}
	return paginate(out, page), nil
}
func (m *mockBrandRepository) All(_ context.Context) ([]model.Brand, error) {
	return m.visible(), nil
}

type mockCategoryRepository struct {
	store map[primitive.ObjectID]*model.Category
}

func (m *mockCategoryRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }
func (m *mockCategoryRepository) Create(_ context.Context, c *model.Category) error {
	clone := *c
	m.store[c.ID] = &clone
	return nil
}
func (m *mockCategoryRepository) Update(_ context.Context, c *model.Category) error {
	if _, ok := m.store[c.ID]; !ok {
		return model.ErrCategoryNotFound
	}
	clone := *c
	m.store[c.ID] = &clone
	return nil
}
func (m *mockCategoryRepository) Find(_ context.Context, id primitive.ObjectID, includeDeleted bool) (*model.Category, error) {
	c, ok := m.store[id]
	if !ok || (c.Frozen() && !includeDeleted) {
		return nil, model.ErrCategoryNotFound
	}
	clone := *c
	return &clone, nil
}
func (m *mockCategoryRepository) FindByName(_ context.Context, name string) (*model.Category, error) {
	for _, c := range m.store {
		if c.Name == name {
			clone := *c
			return &clone, nil
		}
	}
	return nil, model.ErrCategoryNotFound
}
func (m *mockCategoryRepository) Descendants(_ context.Context, id primitive.ObjectID) ([]model.Category, error) {
	var out []model.Category
	queue := []primitive.ObjectID{id}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, c := range m.store {
			if c.ParentID != nil && *c.ParentID == parent {
				out = append(out, *c)
				queue = append(queue, c.ID)
			}
		}
	}
	return out, nil
}
func (m *mockCategoryRepository) FreezeMany(_ context.Context, ids []primitive.ObjectID, at time.Time, by primitive.ObjectID) error {
	for _, id := range ids {
		if c, ok := m.store[id]; ok {
			stamp := at
			c.DeletedAt = &stamp
			c.Touch(by, at)
		}
	}
	return nil
}
func (m *mockCategoryRepository) RestoreMany(_ context.Context, ids []primitive.ObjectID, at time.Time, by primitive.ObjectID) error {
	for _, id := range ids {
		if c, ok := m.store[id]; ok {
			stamp := at
			c.DeletedAt = nil
			c.RestoredAt = &stamp
			c.Touch(by, at)
		}
	}
	return nil
}
func (m *mockCategoryRepository) DeleteMany(_ context.Context, ids []primitive.ObjectID) error {
	for _, id := range ids {
		delete(m.store, id)
	}
	return nil
}
func (m *mockCategoryRepository) List(_ context.Context, search string, page model.Page) (*model.Paginated[model.Category], error) {
	var out []model.Category
	for _, c := range m.store {
		if !c.Frozen() && strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, *c)
		}
	}
	return paginate(out, page), nil
}

type mockProductRepository struct {
	store map[primitive.ObjectID]*model.Product
	// failDecrementAfter makes DecrementStock fail once that many calls succeeded; negative disables.
	failDecrementAfter int
	decrements         int
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{store: make(map[primitive.ObjectID]*model.Product), failDecrementAfter: -1}
}

func (m *mockProductRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }
func (m *mockProductRepository) Create(_ context.Context, p *model.Product) error {
	clone := *p
	m.store[p.ID] = &clone
	return nil
}
func (m *mockProductRepository) Update(_ context.Context, p *model.Product) error {
	if _, ok := m.store[p.ID]; !ok {
		return model.ErrProductNotFound
	}
	clone := *p
	m.store[p.ID] = &clone
	return nil
}
func (m *mockProductRepository) Find(_ context.Context, id primitive.ObjectID, includeDeleted bool) (*model.Product, error) {
	p, ok := m.store[id]
	if !ok || (p.Frozen() && !includeDeleted) {
		return nil, model.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}
func (m *mockProductRepository) DecrementStock(_ context.Context, id primitive.ObjectID, quantity int) (*model.Product, error) {
	if m.failDecrementAfter >= 0 && m.decrements >= m.failDecrementAfter {
		return nil, fmt.Errorf("decrement %s: connection reset", id.Hex())
	}
	p, ok := m.store[id]
	if !ok || p.Frozen() || p.Stock < quantity {
		return nil, model.ErrInsufficientStock
	}
	m.decrements++
	p.Stock -= quantity
	clone := *p
	return &clone, nil
}
func (m *mockProductRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(m.store, id)
	return nil
}
func (m *mockProductRepository) List(_ context.Context, search string, page model.Page) (*model.Paginated[model.Product], error) {
	var out []model.Product
	for _, p := range m.store {
		if !p.Frozen() && strings.Contains(strings.ToLower(p.Name+" "+p.Description), strings.ToLower(search)) {
			out = append(out, *p)
		}
	}
	return paginate(out, page), nil
}

type mockCartRepository struct {
	store map[primitive.ObjectID]*model.Cart
}

func cloneCart(c *model.Cart) *model.Cart {
	clone := *c
	clone.Lines = append([]model.CartLine(nil), c.Lines...)
	return &clone
}

func (m *mockCartRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }
func (m *mockCartRepository) Create(_ context.Context, c *model.Cart) error {
	m.store[c.ID] = cloneCart(c)
	return nil
}
func (m *mockCartRepository) Update(_ context.Context, c *model.Cart) error {
	if _, ok := m.store[c.ID]; !ok {
		return model.ErrCartNotFound
	}
	m.store[c.ID] = cloneCart(c)
	return nil
}
func (m *mockCartRepository) FindByOwner(_ context.Context, owner primitive.ObjectID) (*model.Cart, error) {
	for _, c := range m.store {
		if c.Owner == owner {
			return cloneCart(c), nil
		}
	}
	return nil, model.ErrCartNotFound
}

type mockCouponRepository struct {
	store map[primitive.ObjectID]*model.Coupon
}

func (m *mockCouponRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }
func (m *mockCouponRepository) Create(_ context.Context, c *model.Coupon) error {
	clone := *c
	m.store[c.ID] = &clone
	return nil
}
func (m *mockCouponRepository) Update(_ context.Context, c *model.Coupon) error {
	if _, ok := m.store[c.ID]; !ok {
		return model.ErrCouponNotFound
	}
	clone := *c
	m.store[c.ID] = &clone
	return nil
}
func (m *mockCouponRepository) Find(_ context.Context, id primitive.ObjectID, includeDeleted bool) (*model.Coupon, error) {
	c, ok := m.store[id]
	if !ok || (c.Frozen() && !includeDeleted) {
		return nil, model.ErrCouponNotFound
	}
	clone := *c
	return &clone, nil
}
func (m *mockCouponRepository) FindByCode(_ context.Context, code string, includeDeleted bool) (*model.Coupon, error) {
	for _, c := range m.store {
		if c.Code == code && (includeDeleted || !c.Frozen()) {
			clone := *c
			return &clone, nil
		}
	}
	return nil, model.ErrCouponNotFound
}
func (m *mockCouponRepository) MarkUsed(_ context.Context, id, userID primitive.ObjectID) error {
	c, ok := m.store[id]
	if !ok {
		return model.ErrCouponNotFound
	}
	if !c.UsedByUser(userID) {
		c.UsedBy = append(c.UsedBy, userID)
	}
	return nil
}
func (m *mockCouponRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(m.store, id)
	return nil
}
func (m *mockCouponRepository) List(_ context.Context, page model.Page) (*model.Paginated[model.Coupon], error) {
	var out []model.Coupon
	for _, c := range m.store {
		if !c.Frozen() {
			out = append(out, *c)
		}
	}
	return paginate(out, page), nil
}

type mockOrderRepository struct {
	store map[primitive.ObjectID]*model.Order
	// failUpdates makes the next n calls to Update fail.
	failUpdates int
}

func (m *mockOrderRepository) NextID() primitive.ObjectID { return primitive.NewObjectID() }
func (m *mockOrderRepository) Create(_ context.Context, o *model.Order) error {
	clone := *o
	m.store[o.ID] = &clone
	return nil
}
func (m *mockOrderRepository) Update(_ context.Context, o *model.Order) error {
	if m.failUpdates > 0 {
		m.failUpdates--
		return errors.New("mongo: connection reset")
	}
	if _, ok := m.store[o.ID]; !ok {
		return model.ErrOrderNotFound
	}
	clone := *o
	m.store[o.ID] = &clone
	return nil
}
func (m *mockOrderRepository) Find(_ context.Context, id primitive.ObjectID) (*model.Order, error) {
	if o, ok := m.store[id]; ok {
		clone := *o
		return &clone, nil
	}
	return nil, model.ErrOrderNotFound
}
func (m *mockOrderRepository) ListByUser(_ context.Context, userID primitive.ObjectID, page model.Page) (*model.Paginated[model.Order], error) {
	var out []model.Order
	for _, o := range m.store {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return paginate(out, page), nil
}
func (m *mockOrderRepository) FindAwaitingPayment(_ context.Context, before time.Time) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.store {
		if o.Status == model.Pending && o.PaymentMethod == model.Card && o.CreatedAt.Before(before) && o.Changes.RemindedAt == nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

type mockFileStorage struct {
	mu      sync.Mutex
	objects map[string]bool
	deleted []string
	failOn  string
}

func newMockFileStorage() *mockFileStorage {
	return &mockFileStorage{objects: make(map[string]bool)}
}

func (m *mockFileStorage) Upload(_ context.Context, path string, file model.File) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && file.Name == m.failOn {
		return "", fmt.Errorf("upload %s failed", file.Name)
	}
	if file.Body != nil {
		_, _ = io.Copy(io.Discard, file.Body)
	}
	key := path + "/" + file.Name
	m.objects[key] = true
	return key, nil
}
func (m *mockFileStorage) UploadMany(ctx context.Context, path string, files []model.File) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		key, err := m.Upload(ctx, path, f)
		if err != nil {
			_ = m.DeleteMany(ctx, keys)
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
func (m *mockFileStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}
func (m *mockFileStorage) DeleteMany(ctx context.Context, keys []string) error {
	for _, key := range keys {
		_ = m.Delete(ctx, key)
	}
	return nil
}
func (m *mockFileStorage) DeletePrefix(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.objects {
		if strings.HasPrefix(key, path+"/") {
			delete(m.objects, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

type mockCache struct {
	values map[string][]model.Brand
	gets   int
}

func (m *mockCache) Get(_ context.Context, key string, dest any) (bool, error) {
	m.gets++
	v, ok := m.values[key]
	if !ok {
		return false, nil
	}
	*(dest.(*[]model.Brand)) = v
	return true, nil
}
func (m *mockCache) Set(_ context.Context, key string, value any) error {
	m.values[key] = value.([]model.Brand)
	return nil
}
func (m *mockCache) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

type mockPaymentGateway struct {
	sessions  []*model.Order
	percents  []int
	refunds   []string
	refundErr error
}

func (m *mockPaymentGateway) CreateCheckoutSession(_ context.Context, order *model.Order, _ string, couponPercent int) (*model.CheckoutSession, error) {
	m.sessions = append(m.sessions, order)
	m.percents = append(m.percents, couponPercent)
	return &model.CheckoutSession{ID: "cs_" + order.ID.Hex(), URL: "https://pay.example/" + order.ID.Hex()}, nil
}
func (m *mockPaymentGateway) Refund(_ context.Context, paymentIntent string) (string, error) {
	if m.refundErr != nil {
		return "", m.refundErr
	}
	m.refunds = append(m.refunds, paymentIntent)
	return "re_" + paymentIntent, nil
}

type mockPaymentLedger struct {
	seen      map[string]bool
	refunds   []string
	seenErr   error
	recordErr error
}

func (m *mockPaymentLedger) Seen(_ context.Context, eventID string) (bool, error) {
	if m.seenErr != nil {
		return false, m.seenErr
	}
	return m.seen[eventID], nil
}
func (m *mockPaymentLedger) RecordEvent(_ context.Context, event *model.PaymentEvent) (bool, error) {
	if m.recordErr != nil {
		return false, m.recordErr
	}
	if m.seen[event.ID] {
		return false, nil
	}
	m.seen[event.ID] = true
	return true, nil
}
func (m *mockPaymentLedger) RecordRefund(_ context.Context, _ primitive.ObjectID, _, refundID string, _ int64) error {
	m.refunds = append(m.refunds, refundID)
	return nil
}
