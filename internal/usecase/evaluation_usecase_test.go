package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fadilmartias/interview-evaluator/internal/config"
	"github.com/fadilmartias/interview-evaluator/internal/model"
	"github.com/fadilmartias/interview-evaluator/internal/repository"
	"github.com/fadilmartias/interview-evaluator/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInterviewRepo struct {
	mu         sync.Mutex
	interviews map[string]*model.Interview
	// transitions records every observed status per interview, in order.
	transitions map[string][]string
}

func newFakeInterviewRepo() *fakeInterviewRepo {
	return &fakeInterviewRepo{
		interviews:  make(map[string]*model.Interview),
		transitions: make(map[string][]string),
	}
}

func (r *fakeInterviewRepo) Create(iv *model.Interview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *iv
	r.interviews[iv.ID.String()] = &cp
	r.transitions[iv.ID.String()] = []string{iv.Status}
	return nil
}

func (r *fakeInterviewRepo) FindByID(id string) (*model.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.interviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *iv
	return &cp, nil
}

func (r *fakeInterviewRepo) TransitionStatus(id string, from []string, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.interviews[id]
	if !ok {
		return false, nil
	}
	eligible := false
	for _, f := range from {
		if iv.Status == f {
			eligible = true
			break
		}
	}
	if !eligible {
		return false, nil
	}
	iv.Status = to
	iv.UpdatedAt = time.Now()
	if to == model.StatusProcessing {
		iv.ErrorCode = ""
		iv.ErrorMessage = ""
	}
	r.transitions[id] = append(r.transitions[id], to)
	return true, nil
}

func (r *fakeInterviewRepo) MarkError(id, code, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.interviews[id]
	if !ok || iv.Status != model.StatusProcessing {
		return repository.ErrNotFound
	}
	iv.Status = model.StatusError
	iv.ErrorCode = code
	iv.ErrorMessage = message
	iv.UpdatedAt = time.Now()
	r.transitions[id] = append(r.transitions[id], model.StatusError)
	return nil
}

type fakeEvaluationRepo struct {
	mu         sync.Mutex
	results    map[string]*model.EvaluationResult
	interviews *fakeInterviewRepo
}

func newFakeEvaluationRepo(interviews *fakeInterviewRepo) *fakeEvaluationRepo {
	return &fakeEvaluationRepo{
		results:    make(map[string]*model.EvaluationResult),
		interviews: interviews,
	}
}

func (r *fakeEvaluationRepo) SaveResult(res *model.EvaluationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := res.InterviewID.String()
	if _, exists := r.results[key]; exists {
		return fmt.Errorf("duplicate result for interview %s", key)
	}

	ok, err := r.interviews.TransitionStatus(key, []string{model.StatusProcessing}, model.StatusEvaluated)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("interview %s is not in processing state", key)
	}

	cp := *res
	r.results[key] = &cp
	return nil
}

func (r *fakeEvaluationRepo) FindByInterviewID(interviewID string) (*model.EvaluationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[interviewID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *fakeEvaluationRepo) ListResults(page, pageSize int) ([]model.EvaluationResult, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]model.EvaluationResult, 0, len(r.results))
	for _, res := range r.results {
		all = append(all, *res)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, int64(len(all)), nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

type fakeTranscriptStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	n     int
}

func newFakeTranscriptStore() *fakeTranscriptStore {
	return &fakeTranscriptStore{blobs: make(map[string][]byte)}
}

func (s *fakeTranscriptStore) Put(content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	ref := fmt.Sprintf("transcript-%d", s.n)
	s.blobs[ref] = append([]byte(nil), content...)
	return ref, nil
}

func (s *fakeTranscriptStore) Get(ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[ref]
	if !ok {
		return nil, errors.New("transcript not found")
	}
	return blob, nil
}

type stubJudge struct {
	mu      sync.Mutex
	calls   int
	verdict *service.Verdict
	err     error
	block   chan struct{} // when set, Evaluate waits on it before returning
}

func (j *stubJudge) Evaluate(ctx context.Context, transcript, candidateName string, rubric []config.RubricCriterion) (*service.Verdict, error) {
	j.mu.Lock()
	j.calls++
	block := j.block
	j.mu.Unlock()
	if block != nil {
		<-block
	}
	if j.err != nil {
		return nil, j.err
	}
	return j.verdict, nil
}

func (j *stubJudge) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func testWorkflow(t *testing.T, judge service.JudgeInterface) (*EvaluationUsecase, *fakeInterviewRepo, *fakeEvaluationRepo, *fakeTranscriptStore) {
	t.Helper()
	interviews := newFakeInterviewRepo()
	evaluations := newFakeEvaluationRepo(interviews)
	transcripts := newFakeTranscriptStore()
	rubric := []config.RubricCriterion{
		{Name: "Python Proficiency", Description: "Python programming skills"},
		{Name: "SQL Skills", Description: "SQL database querying skills"},
	}
	uc := NewEvaluationUsecase(interviews, evaluations, transcripts, judge, rubric, zap.NewNop())
	return uc, interviews, evaluations, transcripts
}

func goodVerdict() *service.Verdict {
	return &service.Verdict{
		OverallScore: 8.0,
		Summary:      "Good",
		Strengths:    []string{"python idioms"},
		Weaknesses:   []string{"sql depth"},
		Criteria: []service.CriterionScore{
			{Name: "Python Proficiency", Score: 8, Justification: "strong answer", SupportingQuotes: []string{"I would use a dict here"}},
		},
	}
}

func TestSubmitCreatesUploadedInterview(t *testing.T) {
	uc, _, _, transcripts := testWorkflow(t, &stubJudge{verdict: goodVerdict()})

	iv, err := uc.Submit("Ada", []byte("Q: ... A: ..."))
	require.NoError(t, err)

	assert.Equal(t, model.StatusUploaded, iv.Status)
	assert.Equal(t, "Ada", iv.CandidateName)
	assert.NotEmpty(t, iv.TranscriptRef)

	stored, err := transcripts.Get(iv.TranscriptRef)
	require.NoError(t, err)
	assert.Equal(t, []byte("Q: ... A: ..."), stored)
}

func TestSubmitValidation(t *testing.T) {
	uc, interviews, _, _ := testWorkflow(t, &stubJudge{})

	_, err := uc.Submit("  ", []byte("content"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = uc.Submit("Ada", []byte("   \n"))
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, interviews.interviews)
}

func TestEvaluateSuccess(t *testing.T) {
	judge := &stubJudge{verdict: goodVerdict()}
	uc, interviews, _, _ := testWorkflow(t, judge)

	iv, err := uc.Submit("Ada", []byte("Q: ... A: ..."))
	require.NoError(t, err)

	require.NoError(t, uc.RequestEvaluation(iv.ID.String()))
	uc.Wait()

	status, err := uc.GetStatus(iv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.StatusEvaluated, status.Status)
	assert.Empty(t, status.ErrorCode)

	res, err := uc.GetResult(iv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 8.0, res.OverallScore)
	assert.Equal(t, "Good", res.Summary)
	assert.Equal(t, model.StringList{"python idioms"}, res.Strengths)
	assert.Equal(t, model.StringList{"sql depth"}, res.Weaknesses)
	require.Len(t, res.Criteria, 1)
	assert.Equal(t, "Python Proficiency", res.Criteria[0].Name)
	assert.Equal(t, 8.0, res.Criteria[0].Score)
	assert.Equal(t, "strong answer", res.Criteria[0].Justification)
	assert.Equal(t, model.StringList{"I would use a dict here"}, res.Criteria[0].SupportingQuotes)

	assert.Equal(t, 1, judge.callCount())
	assert.Equal(t,
		[]string{model.StatusUploaded, model.StatusProcessing, model.StatusEvaluated},
		interviews.transitions[iv.ID.String()],
	)
}

func TestProviderFailureRecordsError(t *testing.T) {
	judge := &stubJudge{err: fmt.Errorf("%w: max retries (3) exceeded", service.ErrProviderUnavailable)}
	uc, _, evaluations, _ := testWorkflow(t, judge)

	iv, err := uc.Submit("Ada", []byte("Q: ... A: ..."))
	require.NoError(t, err)

	require.NoError(t, uc.RequestEvaluation(iv.ID.String()))
	uc.Wait()

	status, err := uc.GetStatus(iv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, status.Status)
	assert.Equal(t, model.ErrorCodeProviderUnavailable, status.ErrorCode)
	assert.Contains(t, status.ErrorMessage, "max retries")

	assert.Empty(t, evaluations.results)
}

func TestMalformedVerdictNotRetried(t *testing.T) {
	judge := &stubJudge{err: fmt.Errorf("%w: criterion score 15 out of range", service.ErrMalformedVerdict)}
	uc, _, evaluations, _ := testWorkflow(t, judge)

	iv, err := uc.Submit("Ada", []byte("Q: ... A: ..."))
	require.NoError(t, err)

	require.NoError(t, uc.RequestEvaluation(iv.ID.String()))
	uc.Wait()

	status, err := uc.GetStatus(iv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, status.Status)
	assert.Equal(t, model.ErrorCodeSchemaMismatch, status.ErrorCode)

	assert.Equal(t, 1, judge.callCount())
	assert.Empty(t, evaluations.results)
}

func TestRetryFromErrorState(t *testing.T) {
	judge := &stubJudge{err: fmt.Errorf("%w: provider outage", service.ErrProviderUnavailable)}
	uc, _, _, _ := testWorkflow(t, judge)

	iv, err := uc.Submit("Ada", []byte("Q: ... A: ..."))
	require.NoError(t, err)

	require.NoError(t, uc.RequestEvaluation(iv.ID.String()))
	uc.Wait()

	status, _ := uc.GetStatus(iv.ID.String())
	require.Equal(t, model.StatusError, status.Status)

	// provider recovers
	judge.mu.Lock()
	judge.err = nil
	judge.verdict = goodVerdict()
	judge.mu.Unlock()

	require.NoError(t, uc.RequestEvaluation(iv.ID.String()))
	uc.Wait()

	status, err = uc.GetStatus(iv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.StatusEvaluated, status.Status)
	assert.Empty(t, status.ErrorCode)
	assert.Empty(t, status.ErrorMessage)
}

func TestGetResultNotReady(t *testing.T) {
	block := make(chan struct{})
	judge := &stubJudge{verdict: goodVerdict(), block: block}
	uc, _, _, _ := testWorkflow(t, judge)

	iv, err := uc.Submit("Ada", []byte("Q: ... A: ..."))
	require.NoError(t, err)

	// still uploaded
	_, err = uc.GetResult(iv.ID.String())
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, uc.RequestEvaluation(iv.ID.String()))

	// still processing
	_, err = uc.GetResult(iv.ID.String())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.NotErrorIs(t, err, ErrNotFound)

	close(block)
	uc.Wait()

	_, err = uc.GetResult(iv.ID.String())
	assert.NoError(t, err)
}

func TestGetResultUnknownInterview(t *testing.T) {
	uc, _, _, _ := testWorkflow(t, &stubJudge{})

	_, err := uc.GetResult("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = uc.GetStatus("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)

	err = uc.RequestEvaluation("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateTriggerConflicts(t *testing.T) {
	block := make(chan struct{})
	judge := &stubJudge{verdict: goodVerdict(), block: block}
	uc, _, _, _ := testWorkflow(t, judge)

	iv, err := uc.Submit("Ada", []byte("Q: ... A: ..."))
	require.NoError(t, err)

	require.NoError(t, uc.RequestEvaluation(iv.ID.String()))

	err = uc.RequestEvaluation(iv.ID.String())
	assert.ErrorIs(t, err, ErrInvalidState)

	close(block)
	uc.Wait()

	assert.Equal(t, 1, judge.callCount())

	// evaluated is terminal
	err = uc.RequestEvaluation(iv.ID.String())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConcurrentTriggersRaceOnce(t *testing.T) {
	block := make(chan struct{})
	judge := &stubJudge{verdict: goodVerdict(), block: block}
	uc, _, _, _ := testWorkflow(t, judge)

	iv, err := uc.Submit("Ada", []byte("Q: ... A: ..."))
	require.NoError(t, err)

	const callers = 8
	errs := make(chan error, callers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < callers; i++ {
		go func() {
			start.Wait()
			errs <- uc.RequestEvaluation(iv.ID.String())
		}()
	}
	start.Done()

	var succeeded, conflicted int
	for i := 0; i < callers; i++ {
		err := <-errs
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInvalidState):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	close(block)
	uc.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, conflicted)
	assert.Equal(t, 1, judge.callCount())
}

func TestStatusMonotonicity(t *testing.T) {
	judge := &stubJudge{err: fmt.Errorf("%w: outage", service.ErrProviderUnavailable)}
	uc, interviews, _, _ := testWorkflow(t, judge)

	iv, err := uc.Submit("Ada", []byte("Q: ... A: ..."))
	require.NoError(t, err)

	require.NoError(t, uc.RequestEvaluation(iv.ID.String()))
	uc.Wait()

	judge.mu.Lock()
	judge.err = nil
	judge.verdict = goodVerdict()
	judge.mu.Unlock()

	require.NoError(t, uc.RequestEvaluation(iv.ID.String()))
	uc.Wait()

	got := interviews.transitions[iv.ID.String()]
	want := []string{
		model.StatusUploaded,
		model.StatusProcessing,
		model.StatusError,
		model.StatusProcessing,
		model.StatusEvaluated,
	}
	assert.Equal(t, want, got)

	// evaluated is terminal: nothing may follow
	assert.ErrorIs(t, uc.RequestEvaluation(iv.ID.String()), ErrInvalidState)
	assert.Equal(t, want, interviews.transitions[iv.ID.String()])
}

func TestListPagination(t *testing.T) {
	judge := &stubJudge{verdict: goodVerdict()}
	uc, _, _, _ := testWorkflow(t, judge)

	for i := 0; i < 5; i++ {
		iv, err := uc.Submit(fmt.Sprintf("Candidate %d", i), []byte("Q: ... A: ..."))
		require.NoError(t, err)
		require.NoError(t, uc.RequestEvaluation(iv.ID.String()))
		uc.Wait()
	}

	results, pagination, err := uc.List(1, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int64(5), pagination.TotalItems)
	assert.Equal(t, int64(3), pagination.TotalPages)
	assert.True(t, pagination.HasMore)
	assert.Equal(t, 1, pagination.From)
	assert.Equal(t, 2, pagination.To)

	results, pagination, err = uc.List(3, 2)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.False(t, pagination.HasMore)
	assert.Equal(t, 5, pagination.From)
	assert.Equal(t, 5, pagination.To)
}
