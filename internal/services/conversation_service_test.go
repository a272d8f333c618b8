package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// ----- Fake repo -----

type fakeConvRepo struct {
	// capture args
	focA, focB string
	focConv    *domain.Conversation
	focExisted bool
	focErr     error

	listUserID string
	listItems  []domain.Conversation
	listErr    error

	getID   string
	getConv *domain.Conversation
	getErr  error

	markID  string
	markErr error

	deleteID  string
	deleteErr error

	delByA, delByB string
	delByErr       error
}

func (r *fakeConvRepo) FindOrCreateConversation(ctx context.Context, db *gorm.DB, a, b string) (*domain.Conversation, bool, error) {
	r.focA, r.focB = a, b
	return r.focConv, r.focExisted, r.focErr
}

func (r *fakeConvRepo) GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	r.getID = id
	return r.getConv, r.getErr
}

func (r *fakeConvRepo) ListConversationsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	r.listUserID = userID
	return r.listItems, r.listErr
}

func (r *fakeConvRepo) MarkConversationChecked(ctx context.Context, db *gorm.DB, id string) error {
	r.markID = id
	return r.markErr
}

func (r *fakeConvRepo) DeleteConversation(ctx context.Context, db *gorm.DB, id string) error {
	r.deleteID = id
	return r.deleteErr
}

func (r *fakeConvRepo) DeleteConversationByMembers(ctx context.Context, db *gorm.DB, a, b string) error {
	r.delByA, r.delByB = a, b
	return r.delByErr
}

// ----- FindOrCreate -----

func TestConversationFindOrCreate_Validation(t *testing.T) {
	svc := NewConversationService(nil, &fakeConvRepo{})

	if _, _, err := svc.FindOrCreate(context.Background(), "", "u2"); !errors.Is(err, ErrEmptyMember) {
		t.Fatalf("empty user: expected ErrEmptyMember, got %v", err)
	}
	if _, _, err := svc.FindOrCreate(context.Background(), "u1", "   "); !errors.Is(err, ErrEmptyMember) {
		t.Fatalf("blank peer: expected ErrEmptyMember, got %v", err)
	}
	if _, _, err := svc.FindOrCreate(context.Background(), "u1", "u1"); !errors.Is(err, ErrSameMember) {
		t.Fatalf("self conversation: expected ErrSameMember, got %v", err)
	}
}

func TestConversationFindOrCreate_TrimsAndDelegates(t *testing.T) {
	repo := &fakeConvRepo{
		focConv:    &domain.Conversation{ID: "c1", MemberLow: "u1", MemberHigh: "u2"},
		focExisted: true,
	}
	svc := NewConversationService(nil, repo)

	conv, existed, err := svc.FindOrCreate(context.Background(), "  u1 ", "u2")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if !existed || conv.ID != "c1" {
		t.Fatalf("unexpected result: %+v existed=%v", conv, existed)
	}
	if repo.focA != "u1" || repo.focB != "u2" {
		t.Fatalf("repo should receive trimmed ids, got (%q,%q)", repo.focA, repo.focB)
	}
}

// ----- MarkChecked -----

func TestMarkChecked_RequiresMembership(t *testing.T) {
	repo := &fakeConvRepo{
		getConv: &domain.Conversation{ID: "c1", MemberLow: "u1", MemberHigh: "u2"},
	}
	svc := NewConversationService(nil, repo)

	if err := svc.MarkChecked(context.Background(), "intruder", "c1"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if repo.markID != "" {
		t.Fatalf("mark should not be called for non-members")
	}

	if err := svc.MarkChecked(context.Background(), "u2", "c1"); err != nil {
		t.Fatalf("member mark: %v", err)
	}
	if repo.markID != "c1" {
		t.Fatalf("expected mark on c1, got %q", repo.markID)
	}
}

func TestMarkChecked_MissingConversation(t *testing.T) {
	repo := &fakeConvRepo{getErr: gorm.ErrRecordNotFound}
	svc := NewConversationService(nil, repo)

	if err := svc.MarkChecked(context.Background(), "u1", "nope"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

// ----- Delete -----

func TestDelete_RequiresMembership(t *testing.T) {
	repo := &fakeConvRepo{
		getConv: &domain.Conversation{ID: "c1", MemberLow: "u1", MemberHigh: "u2"},
	}
	svc := NewConversationService(nil, repo)

	if err := svc.Delete(context.Background(), "intruder", "c1"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if err := svc.Delete(context.Background(), "u1", "c1"); err != nil {
		t.Fatalf("member delete: %v", err)
	}
	if repo.deleteID != "c1" {
		t.Fatalf("expected delete of c1, got %q", repo.deleteID)
	}
}

func TestDeleteByMembers_ValidatesAndMapsNotFound(t *testing.T) {
	repo := &fakeConvRepo{delByErr: gorm.ErrRecordNotFound}
	svc := NewConversationService(nil, repo)

	if err := svc.DeleteByMembers(context.Background(), "", "u2"); !errors.Is(err, ErrEmptyMember) {
		t.Fatalf("expected ErrEmptyMember, got %v", err)
	}
	if err := svc.DeleteByMembers(context.Background(), "u1", "u2"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if repo.delByA != "u1" || repo.delByB != "u2" {
		t.Fatalf("repo received (%q,%q)", repo.delByA, repo.delByB)
	}
}

// ----- List -----

func TestList_Delegates(t *testing.T) {
	repo := &fakeConvRepo{
		listItems: []domain.Conversation{{ID: "c1"}, {ID: "c2"}},
	}
	svc := NewConversationService(nil, repo)

	got, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || repo.listUserID != "u1" {
		t.Fatalf("unexpected list result: %v (user %q)", got, repo.listUserID)
	}
}
