package label

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
)

// scriptedProvider is a minimal in-memory mail provider for label
// resolution tests.
type scriptedProvider struct {
	labels []domain.Label
	nextID int

	createErr  error
	createHook func(p *scriptedProvider) // runs when create fails
	applyHook  func(p *scriptedProvider) // runs when apply fails

	applyFails  int // apply calls to fail before succeeding
	listCalls   int
	createCalls int
	applyCalls  int

	appliedTo   string
	lastApplied []string
}

var _ out.MailProviderPort = (*scriptedProvider)(nil)

func (p *scriptedProvider) ListLabels(_ context.Context) ([]domain.Label, error) {
	p.listCalls++
	return append([]domain.Label(nil), p.labels...), nil
}

func (p *scriptedProvider) CreateLabel(_ context.Context, name string) (*domain.Label, error) {
	p.createCalls++
	if p.createErr != nil {
		if p.createHook != nil {
			p.createHook(p)
		}
		return nil, p.createErr
	}
	p.nextID++
	l := domain.Label{ID: fmt.Sprintf("Label_%d", p.nextID), Name: name}
	p.labels = append(p.labels, l)
	return &l, nil
}

func (p *scriptedProvider) ApplyLabels(_ context.Context, messageID string, labelIDs []string) error {
	p.applyCalls++
	if p.applyFails > 0 {
		p.applyFails--
		if p.applyHook != nil {
			p.applyHook(p)
		}
		return errors.New("backend temporarily unavailable")
	}
	p.appliedTo = messageID
	p.lastApplied = append([]string(nil), labelIDs...)
	return nil
}

func (p *scriptedProvider) ListMessageRefs(_ context.Context, _ string, _ int64) ([]domain.MessageRef, error) {
	return nil, nil
}

func (p *scriptedProvider) GetMessage(_ context.Context, _ string) (*domain.Message, error) {
	return nil, nil
}

func (p *scriptedProvider) GetLatestMessage(_ context.Context) (*domain.Message, error) {
	return nil, nil
}

// TestResolveExisting tests that an existing label is reused, never
// recreated.
func TestResolveExisting(t *testing.T) {
	provider := &scriptedProvider{labels: []domain.Label{
		{ID: "Label_7", Name: "Money Related"},
		{ID: "Label_8", Name: "Text Only"},
	}}
	svc := NewService(provider)

	for i := 0; i < 3; i++ {
		id, err := svc.Resolve(context.Background(), "Money Related")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if id != "Label_7" {
			t.Errorf("Resolve() = %q, want Label_7", id)
		}
	}

	if provider.createCalls != 0 {
		t.Errorf("createCalls = %d, want 0 (no duplicate creation)", provider.createCalls)
	}
}

// TestResolveCreatesAbsent tests create-if-absent.
func TestResolveCreatesAbsent(t *testing.T) {
	provider := &scriptedProvider{}
	svc := NewService(provider)

	id, err := svc.Resolve(context.Background(), "Urgent Language")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id == "" {
		t.Fatalf("Resolve() returned empty ID")
	}
	if provider.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", provider.createCalls)
	}

	// Second resolution finds the created label.
	again, err := svc.Resolve(context.Background(), "Urgent Language")
	if err != nil {
		t.Fatalf("Resolve() second call error = %v", err)
	}
	if again != id {
		t.Errorf("second Resolve() = %q, want %q", again, id)
	}
	if provider.createCalls != 1 {
		t.Errorf("createCalls = %d after second resolve, want 1", provider.createCalls)
	}
}

// TestResolveCreateConflict tests the create race: creation fails but
// a re-list finds the concurrently created label.
func TestResolveCreateConflict(t *testing.T) {
	provider := &scriptedProvider{
		createErr: errors.New("conflict: label exists"),
		createHook: func(p *scriptedProvider) {
			// A concurrent writer created the label between our
			// lookup and our create call.
			p.labels = append(p.labels, domain.Label{ID: "Label_race", Name: "Contains Link"})
		},
	}
	svc := NewService(provider)

	id, err := svc.Resolve(context.Background(), "Contains Link")
	if err != nil {
		t.Fatalf("Resolve() error = %v, want recovery via re-list", err)
	}
	if id != "Label_race" {
		t.Errorf("Resolve() = %q, want Label_race", id)
	}
}

// TestResolveCreateFailurePropagates tests that a create failure with
// no concurrent creation surfaces.
func TestResolveCreateFailurePropagates(t *testing.T) {
	createErr := errors.New("quota exhausted")
	provider := &scriptedProvider{createErr: createErr}
	svc := NewService(provider)

	_, err := svc.Resolve(context.Background(), "Suspicious Content")
	if !errors.Is(err, createErr) {
		t.Errorf("Resolve() error = %v, want %v", err, createErr)
	}
}

// TestApplyByName tests the happy path.
func TestApplyByName(t *testing.T) {
	provider := &scriptedProvider{labels: []domain.Label{
		{ID: "L1", Name: "Text Only"},
	}}
	svc := NewService(provider)

	ids, err := svc.ApplyByName(context.Background(), "msg-1", []string{"Text Only", "AI:Work"})
	if err != nil {
		t.Fatalf("ApplyByName() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "L1" {
		t.Errorf("ApplyByName() ids = %v", ids)
	}
	if provider.appliedTo != "msg-1" {
		t.Errorf("appliedTo = %q, want msg-1", provider.appliedTo)
	}
	if !reflect.DeepEqual(provider.lastApplied, ids) {
		t.Errorf("applied ids = %v, want %v", provider.lastApplied, ids)
	}
}

// TestApplyByNameRetriesOnce tests the single re-resolve+apply retry
// after a transient failure.
func TestApplyByNameRetriesOnce(t *testing.T) {
	provider := &scriptedProvider{
		labels:     []domain.Label{{ID: "L1", Name: "Text Only"}},
		applyFails: 1,
	}
	svc := NewService(provider)

	ids, err := svc.ApplyByName(context.Background(), "msg-2", []string{"Text Only"})
	if err != nil {
		t.Fatalf("ApplyByName() error = %v, want success on retry", err)
	}
	if provider.applyCalls != 2 {
		t.Errorf("applyCalls = %d, want 2", provider.applyCalls)
	}
	if !reflect.DeepEqual(ids, []string{"L1"}) {
		t.Errorf("ids = %v, want [L1]", ids)
	}
}

// TestApplyByNameRetryPicksUpNewIDs tests that the retry re-resolves
// names instead of reusing stale IDs.
func TestApplyByNameRetryPicksUpNewIDs(t *testing.T) {
	provider := &scriptedProvider{
		labels:     []domain.Label{{ID: "L_old", Name: "Money Related"}},
		applyFails: 1,
		applyHook: func(p *scriptedProvider) {
			// The label was deleted and recreated under a new ID
			// while our first apply was in flight.
			p.labels = []domain.Label{{ID: "L_new", Name: "Money Related"}}
		},
	}
	svc := NewService(provider)

	ids, err := svc.ApplyByName(context.Background(), "msg-3", []string{"Money Related"})
	if err != nil {
		t.Fatalf("ApplyByName() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"L_new"}) {
		t.Errorf("ids = %v, want [L_new] (retry must re-resolve)", ids)
	}
	if !reflect.DeepEqual(provider.lastApplied, []string{"L_new"}) {
		t.Errorf("applied ids = %v, want [L_new]", provider.lastApplied)
	}
}

// TestApplyByNameSecondFailureSurfaces tests that two consecutive
// apply failures surface the error.
func TestApplyByNameSecondFailureSurfaces(t *testing.T) {
	provider := &scriptedProvider{
		labels:     []domain.Label{{ID: "L1", Name: "Text Only"}},
		applyFails: 2,
	}
	svc := NewService(provider)

	_, err := svc.ApplyByName(context.Background(), "msg-4", []string{"Text Only"})
	if err == nil {
		t.Fatalf("ApplyByName() error = nil, want surfaced failure")
	}
	if provider.applyCalls != 2 {
		t.Errorf("applyCalls = %d, want exactly 2 (one retry)", provider.applyCalls)
	}
}
