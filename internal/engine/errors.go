package engine

import "errors"

// Refusal errors surfaced by ValidateMove/Resign, distinct from the
// geometry refusals in package rules: these concern whose piece it is and
// whether the game will accept a move attempt at all, not its shape.
var (
	ErrGameNotPlaying  = errors.New("game is not in progress")
	ErrPieceNotFound   = errors.New("no such piece")
	ErrNotYourPiece    = errors.New("piece does not belong to this player")
	ErrPieceCaptured   = errors.New("piece has been captured")
	ErrAlreadyMoving   = errors.New("piece already has a move in flight")
	ErrOnCooldown      = errors.New("piece is on cooldown")
)
