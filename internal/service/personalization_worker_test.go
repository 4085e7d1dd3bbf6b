package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/dcrm-backend/internal/model"
	"github.com/unclebandit/dcrm-backend/internal/queue"
	"github.com/unclebandit/dcrm-backend/internal/service"
)

func newWorker(db *memDB) *service.PersonalizationWorker {
	return service.NewPersonalizationWorker(
		&mockAssignmentRepo{db: db},
		&mockLeadRepo{db: db},
		&mockMessageRepo{db: db},
		zap.NewNop(),
	)
}

func seedAssignments(t *testing.T, db *memDB, leadIDs ...int) []*model.MessageAssignment {
	t.Helper()
	pending := []*model.MessageAssignment{}
	for _, id := range leadIDs {
		pending = append(pending, &model.MessageAssignment{CampaignID: campaignC, LeadID: id, MessageID: messageM})
	}
	created, _, err := (&mockAssignmentRepo{db: db}).CreateBatch(context.Background(), pending)
	require.NoError(t, err)
	return created
}

func TestRenderTemplate(t *testing.T) {
	out := service.RenderTemplate("Hi {first_name} from {company_name}", map[string]string{
		"first_name":   "Ann",
		"company_name": "Acme",
	})
	assert.Equal(t, "Hi Ann from Acme", out)
}

func TestRenderTemplate_ValuesAreNotRescanned(t *testing.T) {
	lead := &model.Lead{FirstName: "{company_name}", CompanyName: "Acme"}

	for i := 0; i < 50; i++ {
		out := service.RenderTemplate("Hi {first_name} from {company_name}", service.LeadPlaceholders(lead))
		require.Equal(t, "Hi {company_name} from Acme", out)
	}
}

func TestComposeMessage(t *testing.T) {
	msg := &model.Message{Intro: "Hi", Content: " Body ", CTA: "", PS: "P.S. thanks"}
	assert.Equal(t, "Hi\n\nBody\n\nP.S. thanks", service.ComposeMessage(msg))
}

func TestComposeMessage_PPSAfterPS(t *testing.T) {
	msg := &model.Message{Content: "Body", PS: "P.S. one", PPS: "P.P.S. two"}
	assert.Equal(t, "Body\n\nP.S. one\n\nP.P.S. two", service.ComposeMessage(msg))
}

func TestLeadPlaceholders_Fallbacks(t *testing.T) {
	p := service.LeadPlaceholders(&model.Lead{})
	assert.Equal(t, "there", p["first_name"])
	assert.Equal(t, "there", p["full_name"])
	assert.Equal(t, "", p["company_name"])
	assert.Equal(t, "your company", p["company"])
}

func TestRenderTemplate_CompanyAlias(t *testing.T) {
	withCompany := service.LeadPlaceholders(&model.Lead{FirstName: "Ann", CompanyName: "Acme"})
	assert.Equal(t, "Hi Ann at Acme", service.RenderTemplate("Hi {first_name} at {company}", withCompany))

	without := service.LeadPlaceholders(&model.Lead{FirstName: "Ann"})
	assert.Equal(t, "Hi Ann at your company", service.RenderTemplate("Hi {first_name} at {company}", without))
}

func TestPersonalize_RendersLeadFields(t *testing.T) {
	db := scenarioDB()
	a := seedAssignments(t, db, leadL1)[0]
	w := newWorker(db)

	ok, err := w.Personalize(context.Background(), a.ID)

	require.NoError(t, err)
	assert.True(t, ok)
	stored, _ := (&mockAssignmentRepo{db: db}).GetByID(context.Background(), a.ID)
	assert.Equal(t, "Hi Ann,\n\nSaw Acme is growing.\n\nBook a call", stored.PersonalizedMsg)
}

func TestPersonalize_KeepsExistingUnlessForced(t *testing.T) {
	db := scenarioDB()
	a := seedAssignments(t, db, leadL1)[0]
	a.PersonalizedMsg = "hand written"
	w := newWorker(db)

	ok, err := w.Personalize(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "hand written", db.rows()[0].PersonalizedMsg)

	w.Force = true
	ok, err = w.Personalize(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, db.rows()[0].PersonalizedMsg, "Hi Ann,")
}

func TestPersonalize_MissingAssignmentIsNotRetried(t *testing.T) {
	w := newWorker(scenarioDB())

	ok, err := w.Personalize(context.Background(), 777)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersonalize_UpdateErrorIsReturned(t *testing.T) {
	db := scenarioDB()
	a := seedAssignments(t, db, leadL1)[0]
	db.updateErr = errors.New("read-only transaction")
	w := newWorker(db)

	_, err := w.Personalize(context.Background(), a.ID)

	assert.Error(t, err)
}

func TestHandle_InvalidPayloadIsDropped(t *testing.T) {
	w := newWorker(scenarioDB())
	assert.NoError(t, w.Handle("not-an-id"))
}

func TestPersonalizeCampaign(t *testing.T) {
	db := scenarioDB()
	created := seedAssignments(t, db, leadL1, leadL2, leadL3)
	created[1].PersonalizedMsg = "done already"
	w := newWorker(db)

	n, err := w.PersonalizeCampaign(context.Background(), campaignC)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	w.Force = true
	n, err = w.PersonalizeCampaign(context.Background(), campaignC)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWorker_ThroughInMemoryQueue(t *testing.T) {
	db := scenarioDB()
	q := queue.NewInMemoryQueue(zap.NewNop())
	w := newWorker(db)
	require.NoError(t, q.Subscribe(queue.DefaultAssignmentTopic, w.Handle))

	svc := newAssignmentService(db)
	svc.Queue = q

	_, err := svc.Resolve(context.Background(), model.AssignmentRequest{
		CampaignID: campaignC,
		MessageID:  messageM,
		Filter:     model.LeadFilter{Type: model.LeadTypeCold},
	})
	require.NoError(t, err)
	q.Wait()

	for _, a := range db.rows() {
		assert.NotEmpty(t, a.PersonalizedMsg, "assignment %d", a.ID)
	}
}
