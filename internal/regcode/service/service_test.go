package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldproof/internal/regcode/store"
	userStore "fieldproof/internal/user/store"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/requestcontext"
)

func adminCtx() context.Context {
	ctx := requestcontext.WithActor(context.Background(), requestcontext.Identity{
		UserID: id.NewUserID(),
		Role:   id.RoleAdmin,
	})
	return requestcontext.WithTime(ctx, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
}

func newService(t *testing.T) (*Service, *userStore.InMemory) {
	t.Helper()
	users := userStore.NewInMemory()
	return New(store.NewInMemory(), users), users
}

func TestIssueRequiresAdmin(t *testing.T) {
	svc, _ := newService(t)

	ctx := requestcontext.WithActor(context.Background(), requestcontext.Identity{
		UserID: id.NewUserID(),
		Role:   id.RoleModerator,
	})
	_, err := svc.Issue(ctx, IssueParams{Role: id.RoleUser, FullName: "Ada Obi", Email: "ada@example.com"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestIssueValidatesRole(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Issue(adminCtx(), IssueParams{Role: id.RoleAdmin, FullName: "Ada Obi", Email: "ada@example.com"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = svc.Issue(adminCtx(), IssueParams{Role: id.RoleModerator, FullName: "Ada Obi", Email: "ada@example.com"})
	require.Error(t, err, "moderator code without jurisdiction")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestRegisterCreatesAccountFromCode(t *testing.T) {
	svc, users := newService(t)

	code, err := svc.Issue(adminCtx(), IssueParams{
		Role:         id.RoleModerator,
		Jurisdiction: "Lagos",
		FullName:     "Ada Obi",
		Email:        "ada@example.com",
		PhoneNumber:  "+2348012345678",
		Organization: "Field Ops Ltd",
	})
	require.NoError(t, err)
	assert.False(t, code.Consumed)

	account, err := svc.Register(context.Background(), code.Code)
	require.NoError(t, err)
	assert.Equal(t, id.RoleModerator, account.Role)
	assert.Equal(t, "Lagos", account.Jurisdiction)
	assert.Equal(t, "Ada Obi", account.FullName)
	assert.Equal(t, "ada@example.com", account.Email)

	stored, err := users.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Email, stored.Email)
}

func TestRegisterUnknownCode(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Register(context.Background(), "no-such-code")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRegisterConsumedCodeFailsWithoutSecondAccount(t *testing.T) {
	svc, users := newService(t)

	code, err := svc.Issue(adminCtx(), IssueParams{
		Role: id.RoleUser, FullName: "Ada Obi", Email: "ada@example.com",
	})
	require.NoError(t, err)

	first, err := svc.Register(context.Background(), code.Code)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), code.Code)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	// The losing attempt must not leave a second account behind.
	stored, err := users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
}

func TestRegisterConcurrentSingleWinner(t *testing.T) {
	svc, _ := newService(t)

	code, err := svc.Issue(adminCtx(), IssueParams{
		Role: id.RoleUser, FullName: "Ada Obi", Email: "ada@example.com",
	})
	require.NoError(t, err)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Register(context.Background(), code.Code); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}
