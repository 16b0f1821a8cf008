package gateway

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	auditdomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/domain"
	blogdomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/domain"
	chatdomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/domain"
	identitydomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/rbac"
	saledomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/security"
)

// CreateSale records a sale owned by the actor and puts it at the front of the sales mirror.
func (g *Gateway) CreateSale(ctx context.Context, n saledomain.NewSale) (_ *saledomain.Sale, err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	ctx, end := g.start(ctx, "create_sale")
	defer end(&err)

	n.UserID = g.scope.Actor.ID
	if err := n.Validate(); err != nil {
		return nil, err
	}
	s, err := g.sales.Create(ctx, g.scope.TenantID, n)
	if err != nil {
		return nil, wrap("create sale", err)
	}
	g.saleMirror.prepend(*s)
	g.record(ctx, auditdomain.ActionCreate, tableSales, s.ID, s)
	return s, nil
}

// DeleteSale removes a sale within the actor's sales scope. The mirror is pruned once the store confirms.
func (g *Gateway) DeleteSale(ctx context.Context, id int64) (err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	ctx, end := g.start(ctx, "delete_sale")
	defer end(&err)

	owner := rbac.SalesOwnerFilter(ctx, g.policy, g.scope.Actor)
	if err := g.sales.Delete(ctx, g.scope.TenantID, owner, id); err != nil {
		return wrap("delete sale", err)
	}
	g.saleMirror.remove(func(s saledomain.Sale) bool { return s.ID == id })
	g.record(ctx, auditdomain.ActionDelete, tableSales, id, nil)
	return nil
}

// CreatePost publishes a post authored by the actor. Managers only.
func (g *Gateway) CreatePost(ctx context.Context, n blogdomain.NewPost) (_ *blogdomain.Post, err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	ctx, end := g.start(ctx, "create_post")
	defer end(&err)

	if err := rbac.RequireManager(ctx, g.policy, g.scope.Actor, rbac.CreatePost); err != nil {
		return nil, err
	}
	n.AuthorID = g.scope.Actor.ID
	if err := n.Validate(); err != nil {
		return nil, err
	}
	p, err := g.posts.Create(ctx, g.scope.TenantID, n)
	if err != nil {
		return nil, wrap("create post", err)
	}
	g.postMirror.prepend(*p)
	g.record(ctx, auditdomain.ActionCreate, tablePosts, p.ID, p)
	return p, nil
}

// DeletePost removes a post. Managers only.
func (g *Gateway) DeletePost(ctx context.Context, id int64) (err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	ctx, end := g.start(ctx, "delete_post")
	defer end(&err)

	if err := rbac.RequireManager(ctx, g.policy, g.scope.Actor, rbac.DeletePost); err != nil {
		return err
	}
	if err := g.posts.Delete(ctx, g.scope.TenantID, id); err != nil {
		return wrap("delete post", err)
	}
	g.postMirror.remove(func(p blogdomain.Post) bool { return p.ID == id })
	g.record(ctx, auditdomain.ActionDelete, tablePosts, id, nil)
	return nil
}

// SendMessage sends a direct message from the actor and appends it to the messages mirror.
func (g *Gateway) SendMessage(ctx context.Context, n chatdomain.NewMessage) (_ *chatdomain.Message, err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	ctx, end := g.start(ctx, "send_message")
	defer end(&err)

	n.SenderID = g.scope.Actor.ID
	if err := n.Validate(); err != nil {
		return nil, err
	}
	m, err := g.messages.Create(ctx, g.scope.TenantID, n)
	if err != nil {
		return nil, wrap("send message", err)
	}
	g.messageMirror.append(*m)
	g.record(ctx, auditdomain.ActionCreate, tableMessages, m.ID, nil)
	return m, nil
}

// MarkMessageRead flags message id as read when the actor is its receiver. Calling it again is a no-op.
func (g *Gateway) MarkMessageRead(ctx context.Context, id int64) (err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	ctx, end := g.start(ctx, "mark_message_read")
	defer end(&err)

	me := g.scope.Actor.ID
	if m, ok := g.messageMirror.find(func(m chatdomain.Message) bool { return m.ID == id }); ok && m.ReceiverID == me && m.IsRead {
		return nil
	}
	if err := g.messages.MarkRead(ctx, g.scope.TenantID, me, id); err != nil {
		return wrap("mark message read", err)
	}
	g.messageMirror.update(
		func(m chatdomain.Message) bool { return m.ID == id },
		func(m *chatdomain.Message) { m.IsRead = true })
	g.record(ctx, auditdomain.ActionMarkRead, tableMessages, id, nil)
	return nil
}

// MarkConversationRead flags every unread message from counterpartID to the actor as read and
// returns how many changed.
func (g *Gateway) MarkConversationRead(ctx context.Context, counterpartID int64) (_ int, err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return 0, err
	}
	defer done()
	ctx, end := g.start(ctx, "mark_conversation_read")
	defer end(&err)

	me := g.scope.Actor.ID
	if chatdomain.UnreadFrom(g.messageMirror.snapshot(), counterpartID, me) == 0 {
		return 0, nil
	}
	ids, err := g.messages.MarkReadFrom(ctx, g.scope.TenantID, me, counterpartID)
	if err != nil {
		return 0, wrap("mark conversation read", err)
	}
	read := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		read[id] = struct{}{}
	}
	g.messageMirror.update(
		func(m chatdomain.Message) bool { _, ok := read[m.ID]; return ok },
		func(m *chatdomain.Message) { m.IsRead = true })
	for _, id := range ids {
		g.record(ctx, auditdomain.ActionMarkRead, tableMessages, id, nil)
	}
	return len(ids), nil
}

// Conversation returns the messages exchanged by the actor and counterpartID, oldest first.
func (g *Gateway) Conversation(counterpartID int64) []chatdomain.Message {
	return chatdomain.Between(g.messageMirror.snapshot(), g.scope.Actor.ID, counterpartID)
}

// Conversations lists the actor's conversations, most recent first.
func (g *Gateway) Conversations() []chatdomain.Thread {
	return chatdomain.Threads(g.messageMirror.snapshot(), g.scope.Actor.ID)
}

// UnreadCount returns how many messages addressed to the actor are unread.
func (g *Gateway) UnreadCount() int {
	me := g.scope.Actor.ID
	n := 0
	for _, m := range g.messageMirror.snapshot() {
		if m.ReceiverID == me && !m.IsRead {
			n++
		}
	}
	return n
}

// CreateMember provisions a member in the tenant. Managers only.
func (g *Gateway) CreateMember(ctx context.Context, n identitydomain.NewMember) (_ *identitydomain.Member, err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	ctx, end := g.start(ctx, "create_member")
	defer end(&err)

	if err := rbac.RequireManager(ctx, g.policy, g.scope.Actor, rbac.ManageMembers); err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	n.PasswordHash = ""
	if n.Password != "" {
		if g.hasher == nil {
			g.log.Warn("member password ignored: store does not manage credentials", zap.String("email", n.Email))
		} else {
			h, err := g.hasher.HashPassword(n.Password)
			if errors.Is(err, security.ErrPasswordPolicy) {
				return nil, fmt.Errorf("%w: %v", identitydomain.ErrInvalid, err)
			}
			if err != nil {
				return nil, fmt.Errorf("hash password: %w", err)
			}
			n.PasswordHash = h
		}
	}
	n.Password = ""
	m, err := g.members.Create(ctx, g.scope.TenantID, n)
	if err != nil {
		return nil, wrap("create member", err)
	}
	g.memberMirror.prepend(*m)
	g.record(ctx, auditdomain.ActionCreate, tableUsers, m.ID, m)
	return m, nil
}

// UpdateMember applies a partial update and replaces the roster entry with the stored record.
// Managers may update anyone in the tenant; members only their own display fields.
func (g *Gateway) UpdateMember(ctx context.Context, id int64, u identitydomain.MemberUpdate) (_ *identitydomain.Member, err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	ctx, end := g.start(ctx, "update_member")
	defer end(&err)

	if err := u.Validate(); err != nil {
		return nil, err
	}
	target, ok := g.memberMirror.find(func(m identitydomain.Member) bool { return m.ID == id })
	if !ok {
		t, err := g.members.GetByID(ctx, g.scope.TenantID, id)
		if err != nil {
			return nil, wrap("update member", err)
		}
		target = *t
	}
	if err := rbac.RequireMemberUpdate(ctx, g.policy, g.scope.Actor, &target, u); err != nil {
		return nil, err
	}
	m, err := g.members.Update(ctx, g.scope.TenantID, id, u)
	if err != nil {
		return nil, wrap("update member", err)
	}
	if g.memberMirror.update(
		func(x identitydomain.Member) bool { return x.ID == id },
		func(x *identitydomain.Member) { *x = *m }) == 0 {
		g.memberMirror.prepend(*m)
	}
	g.record(ctx, auditdomain.ActionUpdate, tableUsers, id, u.Columns())
	return m, nil
}

// DeleteMember removes a member from the tenant. Managers only; a manager cannot remove themselves.
func (g *Gateway) DeleteMember(ctx context.Context, id int64) (err error) {
	ctx, done, err := g.bind(ctx)
	if err != nil {
		return err
	}
	defer done()
	ctx, end := g.start(ctx, "delete_member")
	defer end(&err)

	if err := rbac.RequireManager(ctx, g.policy, g.scope.Actor, rbac.ManageMembers); err != nil {
		return err
	}
	if id == g.scope.Actor.ID {
		return fmt.Errorf("%w: cannot remove yourself", identitydomain.ErrInvalid)
	}
	if err := g.members.Delete(ctx, g.scope.TenantID, id); err != nil {
		return wrap("delete member", err)
	}
	g.memberMirror.remove(func(m identitydomain.Member) bool { return m.ID == id })
	g.record(ctx, auditdomain.ActionDelete, tableUsers, id, nil)
	return nil
}
