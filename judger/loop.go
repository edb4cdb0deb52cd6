package judger

import (
	"context"

	"go.uber.org/zap"
)

// Loop fetch judge task from client and report results until the
// client channel is closed or the context is done
func (j *Judger) Loop(ctx context.Context) {
	c := j.Client.C()
	for {
		select {
		case t, ok := <-c:
			if !ok {
				return
			}
			rt, err := j.Judge(ctx, t.Param(), t)
			if err != nil {
				j.getLogger().Error("judge failed", zap.String("id", t.Param().ID), zap.Error(err))
			}
			t.Finished(rt, err)

		case <-ctx.Done():
			return
		}
	}
}
