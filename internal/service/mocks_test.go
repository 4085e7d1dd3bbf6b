package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	appErrors "github.com/unclebandit/dcrm-backend/internal/errors"
	"github.com/unclebandit/dcrm-backend/internal/model"
	"github.com/unclebandit/dcrm-backend/internal/service"
)

// memDB backs the mock repositories. CreateBatch enforces the
// (campaign, lead, message) uniqueness the way the database constraint does.
type memDB struct {
	mu               sync.Mutex
	campaigns        map[int]*model.Campaign
	leads            map[int]*model.Lead
	messages         map[int]*model.Message
	campaignLeads    map[int][]int
	campaignMessages map[int][]int
	assignments      []*model.MessageAssignment
	nextID           int

	createErr     error
	listErr       error
	updateErr     error
	existingGate  *sync.WaitGroup
	createBatches int
}

func newMemDB() *memDB {
	return &memDB{
		campaigns:        map[int]*model.Campaign{},
		leads:            map[int]*model.Lead{},
		messages:         map[int]*model.Message{},
		campaignLeads:    map[int][]int{},
		campaignMessages: map[int][]int{},
		nextID:           1,
	}
}

func (db *memDB) addCampaign(id int) {
	db.campaigns[id] = &model.Campaign{ID: id, Name: "Campaign", IsActive: true}
}

func (db *memDB) addLead(campaignID int, l *model.Lead) {
	db.leads[l.ID] = l
	if campaignID > 0 {
		db.campaignLeads[campaignID] = append(db.campaignLeads[campaignID], l.ID)
	}
}

func (db *memDB) addMessage(campaignID int, m *model.Message) {
	db.messages[m.ID] = m
	if campaignID > 0 {
		db.campaignMessages[campaignID] = append(db.campaignMessages[campaignID], m.ID)
	}
}

func (db *memDB) rows() []*model.MessageAssignment {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*model.MessageAssignment, len(db.assignments))
	copy(out, db.assignments)
	return out
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ---- campaigns ----

type mockCampaignRepo struct{ db *memDB }

func (m *mockCampaignRepo) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (m *mockCampaignRepo) HasLead(ctx context.Context, campaignID, leadID int) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return contains(m.db.campaignLeads[campaignID], leadID), nil
}

func (m *mockCampaignRepo) HasMessage(ctx context.Context, campaignID, messageID int) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return contains(m.db.campaignMessages[campaignID], messageID), nil
}

// ---- leads ----

type mockLeadRepo struct{ db *memDB }

func (m *mockLeadRepo) GetByID(ctx context.Context, id int) (*model.Lead, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.leads[id], nil
}

func (m *mockLeadRepo) ListByCampaign(ctx context.Context, campaignID int, filter model.LeadFilter) ([]*model.Lead, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.listErr != nil {
		return nil, m.db.listErr
	}
	out := []*model.Lead{}
	for _, id := range m.db.campaignLeads[campaignID] {
		if l := m.db.leads[id]; filter.Matches(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- messages ----

type mockMessageRepo struct{ db *memDB }

func (m *mockMessageRepo) GetByID(ctx context.Context, id int) (*model.Message, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.messages[id], nil
}

func (m *mockMessageRepo) ListByCampaign(ctx context.Context, campaignID int) ([]*model.Message, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.listErr != nil {
		return nil, m.db.listErr
	}
	out := []*model.Message{}
	for _, id := range m.db.campaignMessages[campaignID] {
		out = append(out, m.db.messages[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- assignments ----

type mockAssignmentRepo struct{ db *memDB }

func (m *mockAssignmentRepo) LeadIDsWithMessage(ctx context.Context, campaignID, messageID int) (map[int]bool, error) {
	m.db.mu.Lock()
	ids := map[int]bool{}
	for _, a := range m.db.assignments {
		if a.CampaignID == campaignID && a.MessageID == messageID {
			ids[a.LeadID] = true
		}
	}
	gate := m.db.existingGate
	m.db.mu.Unlock()

	// Hold concurrent callers until all of them have read the same state.
	if gate != nil {
		gate.Done()
		gate.Wait()
	}
	return ids, nil
}

func (m *mockAssignmentRepo) CreateBatch(ctx context.Context, assignments []*model.MessageAssignment) ([]*model.MessageAssignment, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.createBatches++
	if m.db.createErr != nil {
		return nil, 0, m.db.createErr
	}

	staged := []*model.MessageAssignment{}
	skipped := 0
	for _, a := range assignments {
		if m.exists(a, staged) {
			skipped++
			continue
		}
		a.ID = m.db.nextID
		a.CreatedAt = time.Now()
		m.db.nextID++
		staged = append(staged, a)
	}
	m.db.assignments = append(m.db.assignments, staged...)
	return staged, skipped, nil
}

func (m *mockAssignmentRepo) exists(a *model.MessageAssignment, staged []*model.MessageAssignment) bool {
	for _, list := range [][]*model.MessageAssignment{m.db.assignments, staged} {
		for _, b := range list {
			if b.CampaignID == a.CampaignID && b.LeadID == a.LeadID && b.MessageID == a.MessageID {
				return true
			}
		}
	}
	return false
}

func (m *mockAssignmentRepo) GetByID(ctx context.Context, id int) (*model.MessageAssignment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, a := range m.db.assignments {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAssignmentRepo) ListByCampaign(ctx context.Context, campaignID int) ([]*model.MessageAssignment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []*model.MessageAssignment{}
	for _, a := range m.db.assignments {
		if a.CampaignID == campaignID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListUnpersonalizedIDs(ctx context.Context, campaignID int) ([]int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	ids := []int{}
	for _, a := range m.db.assignments {
		if a.CampaignID == campaignID && a.PersonalizedMsg == "" {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (m *mockAssignmentRepo) UpdatePersonalizedMsg(ctx context.Context, id int, msg string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.updateErr != nil {
		return m.db.updateErr
	}
	for _, a := range m.db.assignments {
		if a.ID == id {
			a.PersonalizedMsg = msg
		}
	}
	return nil
}

// ---- fixtures ----

const (
	campaignC = 1
	messageM  = 50
	otherMsg  = 51
	leadL1    = 11
	leadL2    = 12
	leadL3    = 13
	outsider  = 99
)

// scenarioDB builds campaign C with leads
// L1(type=cold, source=linkedin), L2(type=warm, source=linkedin),
// L3(type=cold, source=social) and message M. Lead 99 and message 51 exist
// but are outside the campaign.
func scenarioDB() *memDB {
	db := newMemDB()
	db.addCampaign(campaignC)
	db.addLead(campaignC, &model.Lead{ID: leadL3, FullName: "Cy Diaz", FirstName: "Cy", Type: model.LeadTypeCold, Source: model.LeadSourceSocial})
	db.addLead(campaignC, &model.Lead{ID: leadL1, FullName: "Ann Lee", FirstName: "Ann", LastName: "Lee", CompanyName: "Acme", Type: model.LeadTypeCold, Source: model.LeadSourceLinkedIn})
	db.addLead(campaignC, &model.Lead{ID: leadL2, FullName: "Bo Chan", FirstName: "Bo", Type: model.LeadTypeWarm, Source: model.LeadSourceLinkedIn})
	db.addLead(0, &model.Lead{ID: outsider, FullName: "Out Sider", Type: model.LeadTypeCold, Source: model.LeadSourceLinkedIn})
	db.addMessage(campaignC, &model.Message{ID: messageM, Subject: "Quick question", Intro: "Hi {first_name},", Content: "Saw {company_name} is growing.", CTA: "Book a call"})
	db.addMessage(0, &model.Message{ID: otherMsg, Subject: "Elsewhere", Content: "x"})
	return db
}

func newScope(db *memDB) *service.ScopeService {
	return &service.ScopeService{
		CampaignRepo: &mockCampaignRepo{db: db},
		LeadRepo:     &mockLeadRepo{db: db},
		MessageRepo:  &mockMessageRepo{db: db},
	}
}

func intPtr(v int) *int { return &v }
