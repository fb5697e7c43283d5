package role

import (
	"context"
	"errors"
	"testing"

	"barberbook/models"
)

type lookup struct {
	ids   map[string]bool
	err   error
	calls int
}

func (l *lookup) Exists(_ context.Context, id string) (bool, error) {
	l.calls++
	if l.err != nil {
		return false, l.err
	}
	return l.ids[id], nil
}

func TestResolve(t *testing.T) {
	providers := &lookup{ids: map[string]bool{"p1": true, "both": true}}
	customers := &lookup{ids: map[string]bool{"u1": true, "both": true}}
	r := NewResolver(providers, customers)

	cases := []struct {
		name    string
		session *models.Session
		want    models.Role
	}{
		{"nil session", nil, models.RoleAnonymous},
		{"provider", &models.Session{ID: "p1"}, models.RoleProvider},
		{"customer", &models.Session{ID: "u1"}, models.RoleCustomer},
		{"provider wins", &models.Session{ID: "both"}, models.RoleProvider},
		{"no profile", &models.Session{ID: "x"}, models.RoleAnonymous},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tc.session)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestResolveNilSessionSkipsStore(t *testing.T) {
	providers := &lookup{}
	customers := &lookup{}
	_, _ = NewResolver(providers, customers).Resolve(context.Background(), nil)
	if providers.calls+customers.calls != 0 {
		t.Fatalf("expected no lookups for a nil session")
	}
}

func TestResolveFailureIsNotAnonymous(t *testing.T) {
	boom := errors.New("unavailable")

	r := NewResolver(&lookup{err: boom}, &lookup{})
	role, err := r.Resolve(context.Background(), &models.Session{ID: "u1"})
	if !errors.Is(err, models.ErrResolutionFailure) || !errors.Is(err, boom) {
		t.Fatalf("expected resolution failure wrapping cause, got %v", err)
	}
	if role == models.RoleAnonymous {
		t.Fatalf("failure must not resolve to anonymous")
	}

	r = NewResolver(&lookup{}, &lookup{err: boom})
	if _, err := r.Resolve(context.Background(), &models.Session{ID: "u1"}); !errors.Is(err, models.ErrResolutionFailure) {
		t.Fatalf("expected resolution failure from customer lookup, got %v", err)
	}
}
