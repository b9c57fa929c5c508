package memory

import (
	"testing"

	"github.com/enactio/enact/history"
	"github.com/enactio/enact/history/historytest"
)

func Test_Recorder(t *testing.T) {
	historytest.RecorderTest(t, func() history.Recorder {
		return NewRecorder()
	}, nil)
}
