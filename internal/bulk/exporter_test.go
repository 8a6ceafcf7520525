package bulk

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldproof/internal/authz"
	"fieldproof/internal/document/models"
	docStore "fieldproof/internal/document/store"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/requestcontext"
)

func exporterFixture(t *testing.T) (*Exporter, *docStore.InMemory, id.UserID) {
	t.Helper()
	docs := docStore.NewInMemory()
	ownerID := id.NewUserID()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	adminID := id.NewUserID()

	verified := models.New(id.NewDocumentID(), ownerID, base)
	verified.FullName = "Ada Obi"
	verified.Address = "1 Marina Rd"
	verified.ApplyAssignment(id.NewUserID(), base)
	verified.ApplyFindings(models.Findings{AddressExists: true, Comments: "met occupant"}, base.Add(time.Hour))
	verified.ApplyDecision(true, adminID, "", base.Add(2*time.Hour))

	rejected := models.New(id.NewDocumentID(), ownerID, base.Add(time.Minute))
	rejected.FullName = "Bola Ade"
	rejected.ApplyAssignment(id.NewUserID(), base)
	rejected.ApplyFindings(models.Findings{AddressExists: false, Comments: "vacant lot"}, base.Add(time.Hour))
	rejected.ApplyDecision(false, adminID, "no building", base.Add(2*time.Hour))

	open := models.New(id.NewDocumentID(), id.NewUserID(), base.Add(2*time.Minute))
	open.FullName = "Chi Eze"

	for _, doc := range []*models.Document{verified, rejected, open} {
		require.NoError(t, docs.Create(context.Background(), doc))
	}
	return NewExporter(docs, authz.NewGuard()), docs, ownerID
}

func records(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	all, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return all
}

func TestExportAllAsAdmin(t *testing.T) {
	exp, _, _ := exporterFixture(t)
	ctx := requestcontext.WithActor(context.Background(), requestcontext.Identity{
		UserID: id.NewUserID(), Role: id.RoleAdmin,
	})

	var buf bytes.Buffer
	n, err := exp.Export(ctx, &buf, FilterAll)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows := records(t, &buf)
	require.Len(t, rows, 4)
	assert.Equal(t, exportHeader, rows[0])
	// Creation order is stable.
	assert.Equal(t, "Ada Obi", rows[1][0])
	assert.Equal(t, "Bola Ade", rows[2][0])
	assert.Equal(t, "Chi Eze", rows[3][0])

	assert.Equal(t, string(models.StatusVerified), rows[1][7])
	assert.NotEmpty(t, rows[1][8], "decidedBy is populated for closed documents")
	assert.Equal(t, "met occupant", rows[1][10])
	assert.Equal(t, string(models.StatusPendingAssignment), rows[3][7])
	assert.Empty(t, rows[3][8])
}

func TestExportFilters(t *testing.T) {
	exp, _, _ := exporterFixture(t)
	ctx := requestcontext.WithActor(context.Background(), requestcontext.Identity{
		UserID: id.NewUserID(), Role: id.RoleAdmin,
	})

	cases := []struct {
		filter ExportFilter
		want   int
	}{
		{FilterVerified, 1},
		{FilterRejected, 1},
		{FilterUnverified, 1},
		{FilterAll, 3},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		n, err := exp.Export(ctx, &buf, tc.filter)
		require.NoError(t, err, tc.filter)
		assert.Equal(t, tc.want, n, tc.filter)
	}

	var buf bytes.Buffer
	_, err := exp.Export(ctx, &buf, ExportFilter("bogus"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestExportScopedToOwner(t *testing.T) {
	exp, _, ownerID := exporterFixture(t)
	ctx := requestcontext.WithActor(context.Background(), requestcontext.Identity{
		UserID: ownerID, Role: id.RoleUser,
	})

	var buf bytes.Buffer
	n, err := exp.Export(ctx, &buf, FilterAll)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "submitters see only their own documents")
}

func TestExportRejectsModerators(t *testing.T) {
	exp, _, _ := exporterFixture(t)
	ctx := requestcontext.WithActor(context.Background(), requestcontext.Identity{
		UserID: id.NewUserID(), Role: id.RoleModerator, Jurisdiction: "Lagos",
	})

	var buf bytes.Buffer
	_, err := exp.Export(ctx, &buf, FilterAll)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}
