package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blogdomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/domain"
	chatdomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/domain"
	identitydomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/rbac"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/policy/engine"
	saledomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
	salerepo "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/repository"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/security"
)

var (
	joao  = identitydomain.Identity{ID: 1, TenantID: 1, Name: "João", Email: "joao@empresa.com", Role: identitydomain.RoleManager, IsActive: true}
	maria = identitydomain.Identity{ID: 2, TenantID: 1, Name: "Maria", Email: "maria@empresa.com", Role: identitydomain.RoleSalesperson, IsActive: true}
	pedro = identitydomain.Identity{ID: 3, TenantID: 1, Name: "Pedro", Email: "pedro@empresa.com", Role: identitydomain.RoleSalesperson, IsActive: true}
	ana   = identitydomain.Identity{ID: 10, TenantID: 2, Name: "Ana", Email: "ana@outra.com", Role: identitydomain.RoleManager, IsActive: true}
)

// fakeStore holds the rows of every tenant, filtered per call the way the real stores filter.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	members  []identitydomain.Member
	sales    []saledomain.Sale
	posts    []blogdomain.Post
	messages []chatdomain.Message

	failList    map[string]error
	failCreate  error
	lastMember  identitydomain.NewMember
	blockSales  bool
	salesCalled chan struct{}
}

func newFakeStore() *fakeStore {
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &fakeStore{
		nextID:  100,
		members: []identitydomain.Member{joao, maria, pedro, ana},
		sales: []saledomain.Sale{
			{ID: 1, TenantID: 1, UserID: 2, ProductName: "Plano Pro", Value: decimal.NewFromInt(1000), SaleDate: day},
			{ID: 2, TenantID: 1, UserID: 3, ProductName: "Plano Básico", Value: decimal.NewFromInt(500), SaleDate: day.Add(time.Hour)},
			{ID: 3, TenantID: 2, UserID: 10, ProductName: "Consultoria", Value: decimal.NewFromInt(700), SaleDate: day},
		},
		posts: []blogdomain.Post{
			{ID: 1, TenantID: 1, AuthorID: 1, Title: "Metas", Content: "Bater a meta", CreatedAt: day},
			{ID: 2, TenantID: 2, AuthorID: 10, Title: "Outra", Content: "Outra empresa", CreatedAt: day},
		},
		messages: []chatdomain.Message{
			{ID: 1, TenantID: 1, SenderID: 1, ReceiverID: 2, Text: "oi Maria", CreatedAt: day},
			{ID: 2, TenantID: 1, SenderID: 1, ReceiverID: 2, Text: "tudo bem?", CreatedAt: day.Add(time.Minute)},
			{ID: 3, TenantID: 1, SenderID: 3, ReceiverID: 1, Text: "oi chefe", CreatedAt: day.Add(2 * time.Minute)},
			{ID: 4, TenantID: 2, SenderID: 10, ReceiverID: 10, Text: "nota", CreatedAt: day},
		},
		failList:    map[string]error{},
		salesCalled: make(chan struct{}, 1),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) name(id int64) string {
	for _, m := range f.members {
		if m.ID == id {
			return m.Name
		}
	}
	return ""
}

type fakeSales struct{ *fakeStore }

func (f fakeSales) List(ctx context.Context, tenantID, ownerID int64) ([]saledomain.Sale, error) {
	if f.blockSales {
		f.salesCalled <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failList["sales"]; err != nil {
		return nil, err
	}
	var out []saledomain.Sale
	for _, s := range f.sales {
		if s.TenantID == tenantID && (ownerID == salerepo.AnyOwner || s.UserID == ownerID) {
			s.SellerName = f.name(s.UserID)
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SaleDate.After(out[j].SaleDate) })
	return out, nil
}

func (f fakeSales) Create(_ context.Context, tenantID int64, n saledomain.NewSale) (*saledomain.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	s := saledomain.Sale{
		ID: f.id(), TenantID: tenantID, UserID: n.UserID, ProductName: n.ProductName,
		Value: n.Value, CommissionRate: n.CommissionRate, CommissionValue: n.Commission(),
		Status: n.Status, SaleDate: time.Now(), SellerName: f.name(n.UserID),
	}
	f.sales = append(f.sales, s)
	return &s, nil
}

func (f fakeSales) Delete(_ context.Context, tenantID, ownerID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sales {
		if s.ID == id && s.TenantID == tenantID && (ownerID == salerepo.AnyOwner || s.UserID == ownerID) {
			f.sales = append(f.sales[:i], f.sales[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete sale: %w", storeerr.ErrNotFound)
}

type fakePosts struct{ *fakeStore }

func (f fakePosts) List(_ context.Context, tenantID int64) ([]blogdomain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failList["posts"]; err != nil {
		return nil, err
	}
	var out []blogdomain.Post
	for _, p := range f.posts {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakePosts) Create(_ context.Context, tenantID int64, n blogdomain.NewPost) (*blogdomain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := blogdomain.Post{ID: f.id(), TenantID: tenantID, AuthorID: n.AuthorID, Title: n.Title, Content: n.Content,
		Excerpt: n.Excerpt, IsPublished: true, CreatedAt: time.Now(), AuthorName: f.name(n.AuthorID)}
	f.posts = append(f.posts, p)
	return &p, nil
}

func (f fakePosts) Delete(_ context.Context, tenantID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.posts {
		if p.ID == id && p.TenantID == tenantID {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return storeerr.ErrNotFound
}

type fakeMessages struct{ *fakeStore }

func (f fakeMessages) List(_ context.Context, tenantID int64) ([]chatdomain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failList["messages"]; err != nil {
		return nil, err
	}
	var out []chatdomain.Message
	for _, m := range f.messages {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f fakeMessages) Create(_ context.Context, tenantID int64, n chatdomain.NewMessage) (*chatdomain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := chatdomain.Message{ID: f.id(), TenantID: tenantID, SenderID: n.SenderID, ReceiverID: n.ReceiverID,
		Text: n.Text, Type: n.Type, CreatedAt: time.Now(), SenderName: f.name(n.SenderID), ReceiverName: f.name(n.ReceiverID)}
	f.messages = append(f.messages, m)
	return &m, nil
}

func (f fakeMessages) MarkRead(_ context.Context, tenantID, receiverID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		m := &f.messages[i]
		if m.ID == id && m.TenantID == tenantID && m.ReceiverID == receiverID {
			m.IsRead = true
			return nil
		}
	}
	return storeerr.ErrNotFound
}

func (f fakeMessages) MarkReadFrom(_ context.Context, tenantID, receiverID, senderID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []int64{}
	for i := range f.messages {
		m := &f.messages[i]
		if m.TenantID == tenantID && m.ReceiverID == receiverID && m.SenderID == senderID && !m.IsRead {
			m.IsRead = true
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

type fakeMembers struct{ *fakeStore }

func (f fakeMembers) GetByEmail(_ context.Context, email string) (*identitydomain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.Email == email {
			return &m, nil
		}
	}
	return nil, storeerr.ErrNotFound
}

func (f fakeMembers) GetByID(_ context.Context, tenantID, id int64) (*identitydomain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.ID == id && m.TenantID == tenantID {
			return &m, nil
		}
	}
	return nil, storeerr.ErrNotFound
}

func (f fakeMembers) ListByTenant(_ context.Context, tenantID int64) ([]identitydomain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failList["members"]; err != nil {
		return nil, err
	}
	var out []identitydomain.Member
	for _, m := range f.members {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f fakeMembers) Create(_ context.Context, tenantID int64, n identitydomain.NewMember) (*identitydomain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMember = n
	m := identitydomain.Member{ID: f.id(), TenantID: tenantID, Name: n.Name, Email: n.Email, Role: n.Role, IsActive: true}
	f.members = append(f.members, m)
	return &m, nil
}

func (f fakeMembers) Update(_ context.Context, tenantID, id int64, u identitydomain.MemberUpdate) (*identitydomain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.members {
		m := &f.members[i]
		if m.ID == id && m.TenantID == tenantID {
			if u.Name != nil {
				m.Name = *u.Name
			}
			if u.Phone != nil {
				m.Phone = *u.Phone
			}
			if u.Role != nil {
				m.Role = *u.Role
			}
			out := *m
			return &out, nil
		}
	}
	return nil, storeerr.ErrNotFound
}

func (f fakeMembers) Delete(_ context.Context, tenantID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.members {
		if m.ID == id && m.TenantID == tenantID {
			f.members = append(f.members[:i], f.members[i+1:]...)
			return nil
		}
	}
	return storeerr.ErrNotFound
}

func newGateway(t *testing.T, store *fakeStore, actor identitydomain.Identity, hasher *security.Hasher) *Gateway {
	t.Helper()
	ev, err := engine.NewOPAEvaluator(context.Background())
	require.NoError(t, err)
	g, err := New(Scope{TenantID: actor.TenantID, Actor: &actor}, Deps{
		Members:  fakeMembers{store},
		Sales:    fakeSales{store},
		Posts:    fakePosts{store},
		Messages: fakeMessages{store},
		Policy:   ev,
		Hasher:   hasher,
	})
	require.NoError(t, err)
	t.Cleanup(g.Close)
	return g
}

func loaded(t *testing.T, store *fakeStore, actor identitydomain.Identity) *Gateway {
	t.Helper()
	g := newGateway(t, store, actor, nil)
	require.NoError(t, g.LoadAll(context.Background()))
	return g
}

func TestNew_RejectsForeignActor(t *testing.T) {
	a := ana
	_, err := New(Scope{TenantID: 1, Actor: &a}, Deps{})
	assert.ErrorIs(t, err, ErrScope)
	_, err = New(Scope{TenantID: 1}, Deps{})
	assert.ErrorIs(t, err, ErrScope)
}

func TestLoadAll_TenantIsolation(t *testing.T) {
	g := loaded(t, newFakeStore(), joao)

	for _, s := range g.Sales() {
		assert.Equal(t, int64(1), s.TenantID)
	}
	for _, p := range g.Posts() {
		assert.Equal(t, int64(1), p.TenantID)
	}
	for _, m := range g.Messages() {
		assert.Equal(t, int64(1), m.TenantID)
	}
	for _, m := range g.Members() {
		assert.Equal(t, int64(1), m.TenantID)
	}
	assert.Len(t, g.Members(), 3)
	assert.Len(t, g.Messages(), 3)
	assert.False(t, g.Loading())
}

func TestLoadAll_SalesScopeFollowsRole(t *testing.T) {
	store := newFakeStore()

	manager := loaded(t, store, joao)
	require.Len(t, manager.Sales(), 2)
	assert.Equal(t, int64(2), manager.Sales()[0].ID, "newest sale first")

	seller := loaded(t, store, maria)
	require.Len(t, seller.Sales(), 1)
	assert.Equal(t, maria.ID, seller.Sales()[0].UserID)
	assert.Equal(t, "Maria", seller.Sales()[0].SellerName)
}

func TestLoadAll_FailedReadLeavesCollectionEmpty(t *testing.T) {
	store := newFakeStore()
	store.failList["posts"] = errors.New("connection reset")

	g := loaded(t, store, joao)
	assert.NotNil(t, g.Posts())
	assert.Empty(t, g.Posts())
	assert.Len(t, g.Sales(), 2)
	assert.Len(t, g.Members(), 3)
}

func TestCreateSale_PrependsExactlyOne(t *testing.T) {
	store := newFakeStore()
	g := loaded(t, store, maria)
	before := len(g.Sales())

	s, err := g.CreateSale(context.Background(), saledomain.NewSale{
		UserID:         pedro.ID,
		ProductName:    "Plano Enterprise",
		Value:          decimal.NewFromInt(2500),
		CommissionRate: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, maria.ID, s.UserID, "owner is the actor")

	sales := g.Sales()
	require.Len(t, sales, before+1)
	assert.Equal(t, s.ID, sales[0].ID)
	assert.True(t, decimal.NewFromInt(250).Equal(sales[0].CommissionValue))
}

func TestCreateSale_FailureLeavesMirror(t *testing.T) {
	store := newFakeStore()
	g := loaded(t, store, maria)
	before := g.Sales()

	store.failCreate = fmt.Errorf("insert: %w", storeerr.ErrUnavailable)
	_, err := g.CreateSale(context.Background(), saledomain.NewSale{ProductName: "X", Value: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, storeerr.ErrUnavailable)
	assert.Equal(t, before, g.Sales())

	_, err = g.CreateSale(context.Background(), saledomain.NewSale{ProductName: "X"})
	assert.ErrorIs(t, err, saledomain.ErrInvalid)
	assert.Equal(t, before, g.Sales())
}

func TestDeleteSale_TwiceKeepsMirror(t *testing.T) {
	g := loaded(t, newFakeStore(), joao)
	ctx := context.Background()

	require.NoError(t, g.DeleteSale(ctx, 1))
	after := g.Sales()
	require.Len(t, after, 1)

	err := g.DeleteSale(ctx, 1)
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
	assert.Equal(t, after, g.Sales())
}

func TestDeleteSale_SalespersonCannotDeleteOthers(t *testing.T) {
	store := newFakeStore()
	g := loaded(t, store, maria)

	err := g.DeleteSale(context.Background(), 2)
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
	assert.Len(t, store.sales, 3)
}

func TestPosts_ManagerOnly(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	seller := loaded(t, store, maria)
	_, err := seller.CreatePost(ctx, blogdomain.NewPost{Title: "Oi", Content: "Texto"})
	assert.ErrorIs(t, err, rbac.ErrForbidden)
	assert.ErrorIs(t, seller.DeletePost(ctx, 1), rbac.ErrForbidden)

	manager := loaded(t, store, joao)
	p, err := manager.CreatePost(ctx, blogdomain.NewPost{Title: "Campanha", Content: "Nova campanha de março"})
	require.NoError(t, err)
	assert.Equal(t, joao.ID, p.AuthorID)
	require.Len(t, manager.Posts(), 2)
	assert.Equal(t, p.ID, manager.Posts()[0].ID)

	require.NoError(t, manager.DeletePost(ctx, p.ID))
	assert.Len(t, manager.Posts(), 1)
}

func TestSendMessage_Appends(t *testing.T) {
	g := loaded(t, newFakeStore(), maria)

	m, err := g.SendMessage(context.Background(), chatdomain.NewMessage{ReceiverID: joao.ID, Text: "  oi  "})
	require.NoError(t, err)
	msgs := g.Messages()
	assert.Equal(t, m.ID, msgs[len(msgs)-1].ID)
	assert.Equal(t, maria.ID, m.SenderID)
	assert.Equal(t, "oi", m.Text)
}

func TestMarkMessageRead_Idempotent(t *testing.T) {
	g := loaded(t, newFakeStore(), maria)
	ctx := context.Background()
	require.Equal(t, 2, g.UnreadCount())

	require.NoError(t, g.MarkMessageRead(ctx, 1))
	first := g.Messages()
	require.NoError(t, g.MarkMessageRead(ctx, 1))
	assert.Equal(t, first, g.Messages())

	for _, m := range g.Messages() {
		if m.ID == 2 {
			assert.False(t, m.IsRead, "only the marked message flips")
		}
	}
	assert.Equal(t, 1, g.UnreadCount())
}

func TestMarkMessageRead_OnlyReceiver(t *testing.T) {
	g := loaded(t, newFakeStore(), joao)

	err := g.MarkMessageRead(context.Background(), 1)
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
	for _, m := range g.Messages() {
		assert.False(t, m.ID == 1 && m.IsRead)
	}
}

func TestMarkConversationRead(t *testing.T) {
	g := loaded(t, newFakeStore(), maria)
	ctx := context.Background()

	n, err := g.MarkConversationRead(ctx, joao.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, g.UnreadCount())

	n, err = g.MarkConversationRead(ctx, joao.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	conv := g.Conversation(joao.ID)
	require.Len(t, conv, 2)
	threads := g.Conversations()
	require.Len(t, threads, 1)
	assert.Equal(t, joao.ID, threads[0].CounterpartID)
}

func TestCreateMember_HashesPassword(t *testing.T) {
	store := newFakeStore()
	hasher := security.NewHasher(4)
	g := newGateway(t, store, joao, hasher)
	require.NoError(t, g.LoadAll(context.Background()))

	m, err := g.CreateMember(context.Background(), identitydomain.NewMember{
		Name: "Carla", Email: " Carla@Empresa.com ", Password: "s3nha9",
	})
	require.NoError(t, err)
	assert.Equal(t, identitydomain.RoleSalesperson, m.Role)
	assert.Equal(t, "carla@empresa.com", m.Email)
	assert.Equal(t, m.ID, g.Members()[0].ID)

	assert.Empty(t, store.lastMember.Password)
	require.NotEmpty(t, store.lastMember.PasswordHash)
	assert.NoError(t, hasher.Compare(store.lastMember.PasswordHash, []byte("s3nha9")))
}

func TestCreateMember_ShortPasswordRejected(t *testing.T) {
	store := newFakeStore()
	g := newGateway(t, store, joao, security.NewHasher(security.MinCost))
	require.NoError(t, g.LoadAll(context.Background()))

	_, err := g.CreateMember(context.Background(), identitydomain.NewMember{
		Name: "Carla", Email: "carla@empresa.com", Password: "123",
	})
	assert.ErrorIs(t, err, identitydomain.ErrInvalid)
	assert.Empty(t, store.lastMember.Email)
}

func TestCreateMember_SalespersonForbidden(t *testing.T) {
	g := loaded(t, newFakeStore(), maria)
	_, err := g.CreateMember(context.Background(), identitydomain.NewMember{Name: "X", Email: "x@empresa.com"})
	assert.ErrorIs(t, err, rbac.ErrForbidden)
	assert.ErrorIs(t, g.DeleteMember(context.Background(), pedro.ID), rbac.ErrForbidden)
}

func TestUpdateMember(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	g := loaded(t, store, maria)

	name := "Maria Souza"
	m, err := g.UpdateMember(ctx, maria.ID, identitydomain.MemberUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, m.Name)
	for _, x := range g.Members() {
		if x.ID == maria.ID {
			assert.Equal(t, name, x.Name)
		}
	}

	_, err = g.UpdateMember(ctx, pedro.ID, identitydomain.MemberUpdate{Name: &name})
	assert.ErrorIs(t, err, rbac.ErrForbidden)

	role := identitydomain.RoleManager
	_, err = g.UpdateMember(ctx, maria.ID, identitydomain.MemberUpdate{Role: &role})
	assert.ErrorIs(t, err, rbac.ErrForbidden)

	manager := loaded(t, store, joao)
	m, err = manager.UpdateMember(ctx, pedro.ID, identitydomain.MemberUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, identitydomain.RoleManager, m.Role)

	_, err = manager.UpdateMember(ctx, ana.ID, identitydomain.MemberUpdate{Name: &name})
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
}

func TestDeleteMember(t *testing.T) {
	g := loaded(t, newFakeStore(), joao)
	ctx := context.Background()

	assert.ErrorIs(t, g.DeleteMember(ctx, joao.ID), identitydomain.ErrInvalid)
	require.NoError(t, g.DeleteMember(ctx, pedro.ID))
	assert.Len(t, g.Members(), 2)
	assert.ErrorIs(t, g.DeleteMember(ctx, pedro.ID), storeerr.ErrNotFound)
	assert.Len(t, g.Members(), 2)
}

func TestClose_CancelsInFlight(t *testing.T) {
	store := newFakeStore()
	store.blockSales = true
	g := newGateway(t, store, joao, nil)

	errc := make(chan error, 1)
	go func() { errc <- g.LoadAll(context.Background()) }()

	select {
	case <-store.salesCalled:
	case <-time.After(5 * time.Second):
		t.Fatal("sales read never started")
	}
	assert.True(t, g.Loading())
	g.Close()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("LoadAll did not return after Close")
	}
	assert.Empty(t, g.Sales())
	assert.ErrorIs(t, g.DeleteSale(context.Background(), 1), ErrClosed)
}
