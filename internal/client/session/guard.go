package session

// Route entry points used for redirects.
const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Access describes who may see a view.
type Access int

const (
	// Open views render for everyone.
	Open Access = iota
	// Protected views require a session.
	Protected
	// PublicOnly views (login, register) are for signed-out users.
	PublicOnly
)

// Outcome is what the guard decided.
type Outcome int

const (
	Pending Outcome = iota
	Render
	Redirect
)

// Decision is the guard result; To is set for Redirect.
type Decision struct {
	Outcome Outcome
	To      string
}

// Guard decides how to handle a view with the given access rule.
func Guard(st State, access Access) Decision {
	if st.IsLoading {
		return Decision{Outcome: Pending}
	}
	switch access {
	case Protected:
		if !st.IsAuthenticated {
			return Decision{Outcome: Redirect, To: LoginPath}
		}
	case PublicOnly:
		if st.IsAuthenticated {
			return Decision{Outcome: Redirect, To: HomePath}
		}
	}
	return Decision{Outcome: Render}
}
