package server

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Matir03/ttc-server/internal/domains/entities"
	"github.com/Matir03/ttc-server/internal/engine"
	"github.com/Matir03/ttc-server/pkg/logging"
)

// clockScheduler maintains the single flag-fall timer each active session
// is allowed. All methods must be called with the session lock held; the
// timer callback re-enters through session.flagFall, which takes the lock
// itself and revalidates against the generation counter, so a timer
// already in flight when a move lands can never end the game.
type clockScheduler struct {
	clk clockwork.Clock
}

// start arms the first deadline for White. A zero base means the side is
// untimed and never flags.
func (cs *clockScheduler) start(s *session) {
	if s.clock.White.Base > 0 {
		cs.arm(s, engine.White, s.clock.White.Base)
	}
}

// onMove settles the mover's clock and arms the opponent's deadline.
// The mover's new remaining time is its previous remaining time plus
// increment minus the time elapsed since the last clock update.
func (cs *clockScheduler) onMove(s *session, mover engine.Color) {
	cs.cancel(s)

	elapsed := cs.clk.Since(s.clock.Timestamp).Milliseconds()
	rem := remaining(&s.clock, mover) + control(&s.clock, mover).Increment - elapsed
	s.clock.Timeleft = append(s.clock.Timeleft, rem)
	s.clock.Timestamp = cs.clk.Now()

	opponent := engine.Opposite(mover)
	if control(&s.clock, opponent).Base > 0 {
		cs.arm(s, opponent, remaining(&s.clock, opponent))
	}
}

func (cs *clockScheduler) arm(s *session, side engine.Color, ms int64) {
	s.timerGen++
	gen := s.timerGen
	timer := cs.clk.NewTimer(time.Duration(ms) * time.Millisecond)
	cancel := make(chan struct{})
	s.pendingTimer = timer
	s.pendingCancel = cancel

	go func() {
		select {
		case <-timer.Chan():
			s.flagFall(side, gen)
		case <-cancel:
		}
	}()

	logging.Debug("flag-fall timer armed",
		zap.Int("game_id", s.id),
		zap.String("side", string(side)),
		zap.Int64("remaining_ms", ms),
	)
}

// cancel stops the pending timer, if any. Called on every move transition
// and on game end; this is what prevents a double flag fall.
func (cs *clockScheduler) cancel(s *session) {
	if s.pendingTimer == nil {
		return
	}
	s.pendingTimer.Stop()
	close(s.pendingCancel)
	s.pendingTimer = nil
	s.pendingCancel = nil
}

// remaining returns a side's time left in milliseconds: the side's latest
// timeleft entry, or its base if it has not moved yet. Even indices are
// White's, odd Black's.
func remaining(ci *entities.ClockInfo, side engine.Color) int64 {
	parity := 0
	if side == engine.Black {
		parity = 1
	}
	for i := len(ci.Timeleft) - 1; i >= 0; i-- {
		if i%2 == parity {
			return ci.Timeleft[i]
		}
	}
	return control(ci, side).Base
}

func control(ci *entities.ClockInfo, side engine.Color) entities.TimeControl {
	if side == engine.White {
		return ci.White
	}
	return ci.Black
}
