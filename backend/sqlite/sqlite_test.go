package sqlite

import (
	"testing"

	"github.com/enactio/enact/history"
	"github.com/enactio/enact/history/historytest"
)

func Test_SqliteRecorder(t *testing.T) {
	historytest.RecorderTest(t, func() history.Recorder {
		return NewInMemoryRecorder()
	}, nil)
}
