package podbox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akshayaggarwal99/podbox/internal/engine"
)

func TestTranslateMapsEngineErrorsToPodboxErrors(t *testing.T) {
	var target *ContainerNotFoundError
	err := translate(&engine.ContainerNotFoundError{ContainerID: "abc"})
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "abc", target.ContainerID)
}

func TestTranslatePassesThroughUnknownErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, plain, translate(plain))
}

func TestIgnoreNotFoundOrNotRunningSuppressesOnlyThoseTwo(t *testing.T) {
	assert.NoError(t, ignoreNotFoundOrNotRunning(&ContainerNotFoundError{ContainerID: "x"}))
	assert.NoError(t, ignoreNotFoundOrNotRunning(&ContainerNotRunningError{ContainerID: "x"}))
	assert.Error(t, ignoreNotFoundOrNotRunning(&ImageNotFoundError{Image: "x"}))
	assert.NoError(t, ignoreNotFoundOrNotRunning(nil))
}

func TestExecResultOk(t *testing.T) {
	assert.True(t, ExecResult{ExitCode: 0}.Ok())
	assert.False(t, ExecResult{ExitCode: 1}.Ok())
	assert.False(t, ExecResult{ExitCode: 0, TimedOut: true}.Ok())
}
