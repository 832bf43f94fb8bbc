package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/resolvr/backend/internal/models"
)

// MemoryStore keeps everything in process. It backs the server when no
// DATABASE_URL is configured and stands in for Postgres in unit tests.
type MemoryStore struct {
	mu         sync.Mutex
	complaints map[string]models.Complaint
	agents     map[string]models.Agent
	efficiency map[string]map[string]float64
	callbacks  map[string]models.Callback
	calls      []models.CallSummary
	articles   map[string]models.Article
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		complaints: map[string]models.Complaint{},
		agents:     map[string]models.Agent{},
		efficiency: map[string]map[string]float64{},
		callbacks:  map[string]models.Callback{},
		articles:   map[string]models.Article{},
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) CreateComplaint(_ context.Context, c models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complaints[c.ID] = cloneComplaint(c)
	return nil
}

func (s *MemoryStore) GetComplaint(_ context.Context, id string) (models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return models.Complaint{}, models.ErrNotFound
	}
	return cloneComplaint(c), nil
}

func (s *MemoryStore) ListComplaints(_ context.Context, f models.ComplaintFilter) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit, offset := clampPage(f.Limit, f.Offset)
	q := strings.ToLower(strings.TrimSpace(f.Query))

	out := []models.Complaint{}
	for _, c := range s.complaints {
		if f.Status != "" && f.Status != models.BandAll && c.Status != f.Status {
			continue
		}
		if f.Priority != "" && f.Priority != models.BandAll && models.PriorityBand(c.Priority) != f.Priority {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.CustomerName), q) &&
			!strings.Contains(strings.ToLower(c.Description), q) {
			continue
		}
		out = append(out, cloneComplaint(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if offset >= len(out) {
		return []models.Complaint{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateScores(_ context.Context, id string, sc models.Scores) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return models.ErrNotFound
	}
	if c.Status != models.ComplaintPending {
		return models.ErrComplaintResolved
	}
	c.Scores = sc
	s.complaints[id] = c
	return nil
}

func (s *MemoryStore) ResolveComplaint(_ context.Context, id string, at time.Time) (models.Complaint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return models.Complaint{}, false, models.ErrNotFound
	}
	if c.Status == models.ComplaintResolved {
		return cloneComplaint(c), false, nil
	}
	resolvedAt := at
	seconds := int64(nonNegative(at.Sub(c.CreatedAt).Seconds()))
	c.Status = models.ComplaintResolved
	c.ResolvedAt = &resolvedAt
	c.ResolutionTime = &seconds
	s.complaints[id] = c
	return cloneComplaint(c), true, nil
}

func (s *MemoryStore) ComplaintStats(_ context.Context) (models.ComplaintStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st models.ComplaintStats
	var sum float64
	for _, c := range s.complaints {
		st.Total++
		sum += c.Priority
		if c.Status == models.ComplaintPending {
			st.Pending++
		}
	}
	if st.Total > 0 {
		st.AvgPriority = sum / float64(st.Total)
	}
	return st, nil
}

func (s *MemoryStore) UpsertAgent(_ context.Context, a models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.agents[a.ID]; ok {
		a.CurrentWorkload = prev.CurrentWorkload
	}
	s.agents[a.ID] = a
	return nil
}

func (s *MemoryStore) SetAgentStatus(_ context.Context, id string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return models.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	s.agents[id] = a
	return nil
}

func (s *MemoryStore) ListAgentLoads(_ context.Context, day time.Time) ([]models.AgentLoad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AgentLoad, 0, len(s.agents))
	for id := range s.agents {
		out = append(out, s.agentLoadLocked(id, day))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetAgentLoad(_ context.Context, id string, day time.Time) (models.AgentLoad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return models.AgentLoad{}, models.ErrNotFound
	}
	return s.agentLoadLocked(id, day), nil
}

func (s *MemoryStore) agentLoadLocked(id string, day time.Time) models.AgentLoad {
	l := models.AgentLoad{Agent: s.agents[id]}
	var sum float64
	for _, c := range s.complaints {
		if c.Status == models.ComplaintPending && c.AssignedAgent != nil && *c.AssignedAgent == id {
			l.ActiveComplaints++
			sum += c.Priority
		}
	}
	if l.ActiveComplaints > 0 {
		l.AvgPriority = sum / float64(l.ActiveComplaints)
	}
	l.Efficiency = s.efficiency[id][dayKey(day)]
	return l
}

func (s *MemoryStore) ListPendingByAgent(_ context.Context, agentID string) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Complaint{}
	for _, c := range s.complaints {
		if c.Status == models.ComplaintPending && c.AssignedAgent != nil && *c.AssignedAgent == agentID {
			out = append(out, cloneComplaint(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) AssignComplaint(_ context.Context, complaintID, agentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[complaintID]
	if !ok {
		return false, models.ErrNotFound
	}
	a, ok := s.agents[agentID]
	if !ok || a.Status != models.AgentAvailable || c.Status != models.ComplaintPending || c.AssignedAgent != nil {
		return false, nil
	}
	c.AssignedAgent = &agentID
	s.complaints[complaintID] = c
	a.CurrentWorkload += c.Priority
	a.UpdatedAt = time.Now().UTC()
	s.agents[agentID] = a
	return true, nil
}

func (s *MemoryStore) MoveComplaint(_ context.Context, complaintID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[complaintID]
	if !ok || c.Status != models.ComplaintPending || c.AssignedAgent == nil || *c.AssignedAgent != from {
		return false, nil
	}
	target, ok := s.agents[to]
	if !ok || target.Status != models.AgentAvailable {
		return false, nil
	}
	c.AssignedAgent = &to
	s.complaints[complaintID] = c
	if src, ok := s.agents[from]; ok {
		src.CurrentWorkload = nonNegative(src.CurrentWorkload - c.Priority)
		s.agents[from] = src
	}
	target.CurrentWorkload += c.Priority
	s.agents[to] = target
	return true, nil
}

func (s *MemoryStore) SyncWorkloads(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[string]float64{}
	for _, c := range s.complaints {
		if c.Status == models.ComplaintPending && c.AssignedAgent != nil {
			sums[*c.AssignedAgent] += c.Priority
		}
	}
	for id, a := range s.agents {
		a.CurrentWorkload = sums[id]
		s.agents[id] = a
	}
	return nil
}

func (s *MemoryStore) SetEfficiency(_ context.Context, agentID string, day time.Time, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.efficiency[agentID]; !ok {
		s.efficiency[agentID] = map[string]float64{}
	}
	s.efficiency[agentID][dayKey(day)] = score
	return nil
}

// Agent returns the stored agent record, including its workload counter.
func (s *MemoryStore) Agent(id string) (models.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	return a, ok
}

func (s *MemoryStore) UpsertCallback(_ context.Context, cb models.Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.complaints[cb.ComplaintID]; !ok {
		return models.ErrNotFound
	}
	s.callbacks[cb.ComplaintID] = cb
	return nil
}

func (s *MemoryStore) GetCallback(_ context.Context, complaintID string) (models.Callback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.callbacks[complaintID]
	if !ok {
		return models.Callback{}, models.ErrNotFound
	}
	return cb, nil
}

func (s *MemoryStore) ListPendingCallbacks(_ context.Context) ([]models.PendingCallback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.PendingCallback{}
	for _, cb := range s.callbacks {
		if cb.Status != models.CallbackPending {
			continue
		}
		c := s.complaints[cb.ComplaintID]
		out = append(out, models.PendingCallback{
			Callback:      cb,
			CustomerName:  c.CustomerName,
			CustomerPhone: c.CustomerPhone,
			Description:   c.Description,
			Priority:      c.Priority,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].ComplaintID < out[j].ComplaintID
	})
	return out, nil
}

func (s *MemoryStore) CompleteCallback(_ context.Context, complaintID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.callbacks[complaintID]
	if !ok {
		return models.ErrNotFound
	}
	if cb.Status == models.CallbackCompleted {
		return nil
	}
	cb.Status = models.CallbackCompleted
	cb.UpdatedAt = at
	s.callbacks[complaintID] = cb
	return nil
}

func (s *MemoryStore) InsertCallSummary(_ context.Context, cs models.CallSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, cs)
	return nil
}

func (s *MemoryStore) ListCallSummaries(_ context.Context, since time.Time) ([]models.CallSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.CallSummary{}
	for _, cs := range s.calls {
		if !cs.CreatedAt.Before(since) {
			out = append(out, cs)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertArticle(_ context.Context, a models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Tags = append([]string(nil), a.Tags...)
	s.articles[a.ID] = a
	return nil
}

func (s *MemoryStore) SearchArticles(_ context.Context, query string) ([]models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	out := []models.Article{}
	for id, a := range s.articles {
		if !articleMatches(a, q) {
			continue
		}
		a.UsageCount++
		s.articles[id] = a
		out = append(out, a)
	}
	sortArticles(out)
	return out, nil
}

func (s *MemoryStore) PopularArticles(_ context.Context, limit int) ([]models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, a)
	}
	sortArticles(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func articleMatches(a models.Article, q string) bool {
	if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Content), q) {
		return true
	}
	for _, t := range a.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func sortArticles(as []models.Article) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].UsageCount != as[j].UsageCount {
			return as[i].UsageCount > as[j].UsageCount
		}
		return as[i].CreatedAt.Before(as[j].CreatedAt)
	})
}

func cloneComplaint(c models.Complaint) models.Complaint {
	if c.AssignedAgent != nil {
		v := *c.AssignedAgent
		c.AssignedAgent = &v
	}
	if c.ResolvedAt != nil {
		v := *c.ResolvedAt
		c.ResolvedAt = &v
	}
	if c.ResolutionTime != nil {
		v := *c.ResolutionTime
		c.ResolutionTime = &v
	}
	return c
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
