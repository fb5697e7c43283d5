// Package navigation maps a role resolution to the screens a session may open.
package navigation

import (
	"barberbook/models"
	"barberbook/services/role"
)

// Screen names a reachable screen of the display layer.
type Screen string

const (
	ScreenLogin             Screen = "login"
	ScreenSignup            Screen = "signup"
	ScreenHome              Screen = "home"
	ScreenAppointments      Screen = "appointments"
	ScreenProfile           Screen = "profile"
	ScreenBooking           Screen = "booking"
	ScreenApprovalDashboard Screen = "approvalDashboard"
)

// View is the navigation graph granted to a session.
type View struct {
	State role.Status `json:"state"`
	Role  models.Role `json:"role,omitempty"`
	// Screens lists the screens reachable from the root of the graph.
	Screens []Screen `json:"screens"`
	// DeepLinkOnly lists screens that are reachable only by deep link.
	DeepLinkOnly []Screen `json:"deepLinkOnly,omitempty"`
	// Retry is set when the role could not be determined and the display
	// layer should offer to resolve again.
	Retry bool `json:"retry,omitempty"`
}

// Gate is pure: the same resolution always yields the same view.
func Gate(res role.Resolution) View {
	switch res.Status {
	case role.StatusUndetermined:
		return View{State: role.StatusUndetermined, Screens: []Screen{}}
	case role.StatusFailed:
		return View{State: role.StatusFailed, Screens: []Screen{}, Retry: true}
	}

	v := View{State: role.StatusResolved, Role: res.Role}
	switch res.Role {
	case models.RoleProvider:
		v.Screens = []Screen{ScreenApprovalDashboard, ScreenProfile}
	case models.RoleCustomer:
		v.Screens = []Screen{ScreenHome, ScreenAppointments, ScreenProfile, ScreenBooking}
	default:
		v.Role = models.RoleAnonymous
		v.Screens = []Screen{ScreenLogin, ScreenSignup}
		v.DeepLinkOnly = []Screen{ScreenBooking}
	}
	return v
}

// Reachable reports whether screen can be opened, directly or by deep link.
func (v View) Reachable(screen Screen) bool {
	for _, s := range v.Screens {
		if s == screen {
			return true
		}
	}
	for _, s := range v.DeepLinkOnly {
		if s == screen {
			return true
		}
	}
	return false
}
