package werewolf

import "errors"

// Kind classifies why an action was rejected or a collaborator call failed.
type Kind int

const (
	KindNone Kind = iota
	KindGameState
	KindRoleViolation
	KindInvalidTarget
	KindAlreadyActed
	KindResourceExhausted
	KindUnreachable
	KindNarrationFailure
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindGameState:
		return "game_state"
	case KindRoleViolation:
		return "role_violation"
	case KindInvalidTarget:
		return "invalid_target"
	case KindAlreadyActed:
		return "already_acted"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindUnreachable:
		return "unreachable"
	case KindNarrationFailure:
		return "narration_failure"
	case KindCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Error is a rejection that goes back to the actor who submitted the action.
// Callers add detail with fmt.Errorf("%w: ...", ErrX); errors.Is still matches.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

var (
	ErrAlreadyStarted    = &Error{KindGameState, "the game has already started"}
	ErrNotStarted        = &Error{KindGameState, "the game has not started yet"}
	ErrGameOver          = &Error{KindGameState, "the game is over"}
	ErrNotNightPhase     = &Error{KindGameState, "this can only be done at night"}
	ErrNotDayPhase       = &Error{KindGameState, "voting is not open"}
	ErrNotEnoughPlayers  = &Error{KindGameState, "not enough players"}
	ErrLobbyFull         = &Error{KindGameState, "the lobby is full"}
	ErrAlreadyInGame     = &Error{KindGameState, "already playing in another game"}
	ErrNotFound          = &Error{KindGameState, "not found"}
	ErrDuplicateActor    = &Error{KindGameState, "already joined"}
	ErrNotInGame         = &Error{KindRoleViolation, "you are not in this game"}
	ErrWrongRole         = &Error{KindRoleViolation, "your role cannot do that"}
	ErrActorDead         = &Error{KindRoleViolation, "dead players cannot act"}
	ErrVoterDead         = &Error{KindRoleViolation, "dead players cannot vote"}
	ErrPowersStripped    = &Error{KindRoleViolation, "the village has lost its powers"}
	ErrInvalidTarget     = &Error{KindInvalidTarget, "target is not valid"}
	ErrTargetDead        = &Error{KindInvalidTarget, "target is dead"}
	ErrAlreadyActed      = &Error{KindAlreadyActed, "already acted tonight"}
	ErrAlreadyChosen     = &Error{KindAlreadyActed, "the lovers can only be chosen once, on the first night"}
	ErrPotionAlreadyUsed = &Error{KindResourceExhausted, "that potion is already used"}
	ErrUnreachable       = &Error{KindUnreachable, "actor could not be reached"}
	ErrTimedOut          = &Error{KindUnreachable, "no answer before the time ran out"}
	ErrCancelled         = &Error{KindCancelled, "stale request for a phase that already ended"}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindNone.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}
