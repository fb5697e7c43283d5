package navigation

import (
	"errors"
	"reflect"
	"testing"

	"barberbook/models"
	"barberbook/services/role"
)

func TestGate(t *testing.T) {
	cases := []struct {
		name     string
		res      role.Resolution
		screens  []Screen
		deepLink []Screen
	}{
		{"anonymous", role.Resolved(models.RoleAnonymous, nil), []Screen{ScreenLogin, ScreenSignup}, []Screen{ScreenBooking}},
		{"customer", role.Resolved(models.RoleCustomer, nil), []Screen{ScreenHome, ScreenAppointments, ScreenProfile, ScreenBooking}, nil},
		{"provider", role.Resolved(models.RoleProvider, nil), []Screen{ScreenApprovalDashboard, ScreenProfile}, nil},
		{"undetermined", role.Undetermined, []Screen{}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Gate(tc.res)
			if !reflect.DeepEqual(v.Screens, tc.screens) {
				t.Fatalf("expected screens %v, got %v", tc.screens, v.Screens)
			}
			if !reflect.DeepEqual(v.DeepLinkOnly, tc.deepLink) {
				t.Fatalf("expected deep links %v, got %v", tc.deepLink, v.DeepLinkOnly)
			}
		})
	}
}

func TestGateNeverMixesRoles(t *testing.T) {
	provider := Gate(role.Resolved(models.RoleProvider, nil))
	if provider.Reachable(ScreenHome) || provider.Reachable(ScreenBooking) || provider.Reachable(ScreenAppointments) {
		t.Fatalf("provider view exposes customer screens: %+v", provider)
	}
	customer := Gate(role.Resolved(models.RoleCustomer, nil))
	if customer.Reachable(ScreenApprovalDashboard) {
		t.Fatalf("customer view exposes the approval dashboard")
	}
}

func TestGateFailureOffersRetry(t *testing.T) {
	v := Gate(role.Resolved("", errors.New("down")))
	if v.State != role.StatusFailed || !v.Retry || len(v.Screens) != 0 {
		t.Fatalf("unexpected failure view %+v", v)
	}
	if v.Reachable(ScreenLogin) {
		t.Fatalf("failure view must not fall back to the anonymous graph")
	}
}
