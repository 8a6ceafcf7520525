package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fieldproof/internal/document/models"
	id "fieldproof/pkg/domain"
	"fieldproof/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemorySuite) newDoc(createdAt time.Time) *models.Document {
	doc := models.New(id.NewDocumentID(), id.NewUserID(), createdAt)
	s.Require().NoError(s.store.Create(context.Background(), doc))
	return doc
}

func (s *InMemorySuite) TestCreateAndGet() {
	doc := s.newDoc(time.Now())

	got, err := s.store.Get(context.Background(), doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.ID, got.ID)
	s.Equal(models.StatusPendingAssignment, got.Status)

	s.ErrorIs(s.store.Create(context.Background(), doc), sentinel.ErrConflict)

	_, err = s.store.Get(context.Background(), id.NewDocumentID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestGetReturnsCopy() {
	doc := s.newDoc(time.Now())

	got, err := s.store.Get(context.Background(), doc.ID)
	s.Require().NoError(err)
	got.Status = models.StatusVerified

	again, err := s.store.Get(context.Background(), doc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPendingAssignment, again.Status, "callers must not mutate stored state")
}

func (s *InMemorySuite) TestUpdateIfStatus() {
	doc := s.newDoc(time.Now())
	moderatorID := id.NewUserID()

	updated, err := s.store.UpdateIfStatus(context.Background(), doc.ID,
		models.StatusPendingAssignment, func(d *models.Document) error {
			d.ApplyAssignment(moderatorID, time.Now())
			return nil
		})
	s.Require().NoError(err)
	s.Equal(models.StatusAssignedToModerator, updated.Status)

	// The observed status is stale now; a second identical update conflicts.
	_, err = s.store.UpdateIfStatus(context.Background(), doc.ID,
		models.StatusPendingAssignment, func(d *models.Document) error {
			d.ApplyAssignment(moderatorID, time.Now())
			return nil
		})
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.UpdateIfStatus(context.Background(), id.NewDocumentID(),
		models.StatusPendingAssignment, func(*models.Document) error { return nil })
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestUpdateIfStatusMutateErrorWritesNothing() {
	doc := s.newDoc(time.Now())

	boom := sentinel.ErrInvalidState
	_, err := s.store.UpdateIfStatus(context.Background(), doc.ID,
		models.StatusPendingAssignment, func(d *models.Document) error {
			d.ApplyAssignment(id.NewUserID(), time.Now())
			return boom
		})
	s.ErrorIs(err, boom)

	got, err := s.store.Get(context.Background(), doc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPendingAssignment, got.Status)
	s.Nil(got.AssignedTo)
}

func (s *InMemorySuite) TestUpdateIfStatusRejectsInvariantBreak() {
	doc := s.newDoc(time.Now())

	_, err := s.store.UpdateIfStatus(context.Background(), doc.ID,
		models.StatusPendingAssignment, func(d *models.Document) error {
			d.Status = models.StatusAssignedToModerator // no moderator bound
			return nil
		})
	s.Require().Error(err)

	got, _ := s.store.Get(context.Background(), doc.ID)
	s.Equal(models.StatusPendingAssignment, got.Status)
}

func (s *InMemorySuite) TestQueryFiltersAndOrder() {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := s.newDoc(base)
	second := s.newDoc(base.Add(time.Minute))
	third := s.newDoc(base.Add(2 * time.Minute))

	moderatorID := id.NewUserID()
	_, err := s.store.UpdateIfStatus(context.Background(), second.ID,
		models.StatusPendingAssignment, func(d *models.Document) error {
			d.ApplyAssignment(moderatorID, base)
			return nil
		})
	s.Require().NoError(err)

	all, err := s.store.Query(context.Background(), Filter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(first.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID)
	s.Equal(third.ID, all[2].ID)

	owner := first.OwnerID
	mine, err := s.store.Query(context.Background(), Filter{OwnerID: &owner})
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(first.ID, mine[0].ID)

	assigned, err := s.store.Query(context.Background(), Filter{AssignedTo: &moderatorID})
	s.Require().NoError(err)
	s.Require().Len(assigned, 1)
	s.Equal(second.ID, assigned[0].ID)

	pending, err := s.store.Query(context.Background(), Filter{
		Statuses: []models.Status{models.StatusPendingAssignment},
	})
	s.Require().NoError(err)
	s.Len(pending, 2)
}

func (s *InMemorySuite) TestCountOpenByModerator() {
	moderatorID := id.NewUserID()
	for i := 0; i < 3; i++ {
		doc := s.newDoc(time.Now())
		_, err := s.store.UpdateIfStatus(context.Background(), doc.ID,
			models.StatusPendingAssignment, func(d *models.Document) error {
				d.ApplyAssignment(moderatorID, time.Now())
				return nil
			})
		s.Require().NoError(err)
	}
	s.newDoc(time.Now()) // stays pending

	count, err := s.store.CountOpenByModerator(context.Background(), moderatorID)
	s.Require().NoError(err)
	s.Equal(3, count)

	count, err = s.store.CountOpenByModerator(context.Background(), id.NewUserID())
	s.Require().NoError(err)
	s.Equal(0, count)
}
