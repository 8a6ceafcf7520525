//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fieldproof/internal/document/models"
	"fieldproof/internal/document/store"
	userModels "fieldproof/internal/user/models"
	userStore "fieldproof/internal/user/store"
	id "fieldproof/pkg/domain"
	"fieldproof/pkg/platform/sentinel"
	"fieldproof/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	users    *userStore.Postgres

	ownerID     id.UserID
	moderatorID id.UserID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
	s.users = userStore.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "audit_events", "documents", "registration_codes", "users"))

	s.ownerID = id.NewUserID()
	owner, err := userModels.NewUser(s.ownerID, id.RoleUser, "",
		"Ada Obi", "ada@example.com", "", "", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(ctx, owner))

	s.moderatorID = id.NewUserID()
	moderator, err := userModels.NewUser(s.moderatorID, id.RoleModerator, "Lagos",
		"Bola Ade", "bola@example.com", "", "", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(ctx, moderator))
}

func (s *PostgresStoreSuite) newDoc() *models.Document {
	doc := models.New(id.NewDocumentID(), s.ownerID, time.Now().UTC().Truncate(time.Microsecond))
	doc.FullName = "Ada Obi"
	doc.Email = "ada@example.com"
	doc.Address = "1 Marina Rd"
	doc.City = "Lagos"
	doc.State = "Lagos State"
	doc.Country = "Nigeria"
	lat, lng := 6.5244, 3.3792
	doc.Latitude, doc.Longitude = &lat, &lng
	doc.Region = "Lagos"
	s.Require().NoError(s.store.Create(context.Background(), doc))
	return doc
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	doc := s.newDoc()

	got, err := s.store.Get(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.ID, got.ID)
	s.Equal(doc.OwnerID, got.OwnerID)
	s.Equal(models.StatusPendingAssignment, got.Status)
	s.Require().NotNil(got.Latitude)
	s.InDelta(6.5244, *got.Latitude, 1e-9)
	s.Equal("Lagos", got.Region)

	_, err = s.store.Get(ctx, id.NewDocumentID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFullLifecyclePersists() {
	ctx := context.Background()
	doc := s.newDoc()

	_, err := s.store.UpdateIfStatus(ctx, doc.ID, models.StatusPendingAssignment,
		func(d *models.Document) error {
			d.ApplyAssignment(s.moderatorID, time.Now().UTC())
			return nil
		})
	s.Require().NoError(err)

	_, err = s.store.UpdateIfStatus(ctx, doc.ID, models.StatusAssignedToModerator,
		func(d *models.Document) error {
			d.ApplyFindings(models.Findings{
				AddressExists: true,
				BuildingType:  "residential",
				OccupantMet:   true,
				Relationship:  "self",
				Comments:      "confirmed on site",
			}, time.Now().UTC())
			return nil
		})
	s.Require().NoError(err)

	adminID := s.moderatorID // any existing user satisfies the FK
	final, err := s.store.UpdateIfStatus(ctx, doc.ID, models.StatusModeratorVerified,
		func(d *models.Document) error {
			d.ApplyDecision(true, adminID, "all good", time.Now().UTC())
			return nil
		})
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, final.Status)

	got, err := s.store.Get(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, got.Status)
	s.Require().NotNil(got.Findings)
	s.Equal("residential", got.Findings.BuildingType)
	s.Require().NotNil(got.Decision)
	s.Equal("all good", got.Decision.Notes)
}

func (s *PostgresStoreSuite) TestUpdateIfStatusConflict() {
	ctx := context.Background()
	doc := s.newDoc()

	_, err := s.store.UpdateIfStatus(ctx, doc.ID, models.StatusAssignedToModerator,
		func(d *models.Document) error { return nil })
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestConcurrentAssignSingleWinner() {
	ctx := context.Background()
	doc := s.newDoc()

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.UpdateIfStatus(ctx, doc.ID, models.StatusPendingAssignment,
				func(d *models.Document) error {
					d.ApplyAssignment(s.moderatorID, time.Now().UTC())
					return nil
				})
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one assignment wins")
	s.Equal(int32(goroutines-1), conflictCount.Load())

	got, err := s.store.Get(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAssignedToModerator, got.Status)
}

func (s *PostgresStoreSuite) TestQueryAndCount() {
	ctx := context.Background()
	first := s.newDoc()
	second := s.newDoc()

	_, err := s.store.UpdateIfStatus(ctx, second.ID, models.StatusPendingAssignment,
		func(d *models.Document) error {
			d.ApplyAssignment(s.moderatorID, time.Now().UTC())
			return nil
		})
	s.Require().NoError(err)

	all, err := s.store.Query(ctx, store.Filter{})
	s.Require().NoError(err)
	s.Len(all, 2)

	pending, err := s.store.Query(ctx, store.Filter{
		Statuses: []models.Status{models.StatusPendingAssignment},
	})
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(first.ID, pending[0].ID)

	assigned, err := s.store.Query(ctx, store.Filter{AssignedTo: &s.moderatorID})
	s.Require().NoError(err)
	s.Require().Len(assigned, 1)
	s.Equal(second.ID, assigned[0].ID)

	count, err := s.store.CountOpenByModerator(ctx, s.moderatorID)
	s.Require().NoError(err)
	s.Equal(1, count)
}
