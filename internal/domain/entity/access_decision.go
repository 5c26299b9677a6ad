package entity

// Resolution resultado del resolvedor de permisos.
type Resolution int

const (
	ResolutionUnknown Resolution = iota
	ResolutionAllow
	ResolutionDeny
)

func (r Resolution) String() string {
	switch r {
	case ResolutionAllow:
		return "allow"
	case ResolutionDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// GuardState estado de la verificación de una navegación.
type GuardState string

const (
	GuardLoading         GuardState = "loading"
	GuardChecking        GuardState = "checking"
	GuardAllowed         GuardState = "allowed"
	GuardDenied          GuardState = "denied"
	GuardUnauthenticated GuardState = "unauthenticated"
)

// AccessDecision resultado de una navegación. Transitorio, nunca se persiste.
type AccessDecision struct {
	Seq        uint64
	Path       string
	PageID     string
	State      GuardState
	Allow      bool
	Pending    bool
	Retryable  bool
	Reason     string
	RedirectTo string
	// FromCache indica que se concedió por la señal de privilegio en caché tras un fallo de la fuente.
	FromCache  bool
	Superseded bool
	Attempts   int
}
