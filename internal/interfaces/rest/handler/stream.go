package handler

import (
	"context"

	"github.com/gorilla/websocket"
	infra "github.com/pot-code/learning-path/internal/infrastructure"
	"github.com/pot-code/learning-path/internal/learningpath"
)

// LearningPathStream push provider snapshots over websocket
type LearningPathStream struct {
	useCase learningpath.LearningPathUseCase
	ws      *infra.Websocket
}

func NewLearningPathStream(UseCase learningpath.LearningPathUseCase, Websocket *infra.Websocket) *LearningPathStream {
	return &LearningPathStream{UseCase, Websocket}
}

// HandleStream send the current snapshot, then every published one.
// A slow client skips intermediate snapshots and always receives the latest.
func (ls *LearningPathStream) HandleStream(ctx context.Context, conn *websocket.Conn) error {
	updates := make(chan learningpath.Snapshot, 1)
	unsubscribe := ls.useCase.Subscribe(func(s learningpath.Snapshot) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			// replace the pending snapshot
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := ls.ws.WriteJSON(conn, NewSnapshotView(ls.useCase.Snapshot())); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-updates:
			if err := ls.ws.WriteJSON(conn, NewSnapshotView(s)); err != nil {
				return err
			}
		}
	}
}
