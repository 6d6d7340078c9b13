package ptyio

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	mu    sync.Mutex
	codes []int
}

func (q *recordingQueue) Press(codes ...int) {
	q.mu.Lock()
	q.codes = append(q.codes, codes...)
	q.mu.Unlock()
}

func (q *recordingQueue) snapshot() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int(nil), q.codes...)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSlaveInputReachesKeyboardQueue(t *testing.T) {
	q := &recordingQueue{}
	b, err := New(q, testLogger())
	require.NoError(t, err)
	defer b.Close()

	_, err = b.slave.Write([]byte("ls\r"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(q.snapshot()) >= 3
	}, time.Second, time.Millisecond)

	require.Equal(t, []int{'l', 's', '\r'}, q.snapshot())
}

func TestUARTOutputAppearsOnSlave(t *testing.T) {
	q := &recordingQueue{}
	b, err := New(q, testLogger())
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Write([]byte("boot ok"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	require.NoError(t, b.slave.SetReadDeadline(time.Now().Add(time.Second)))
	n, err := b.slave.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "boot ok", string(buf[:n]))

	// Raw mode must keep the written bytes from echoing back into the
	// keyboard queue.
	time.Sleep(10 * time.Millisecond)
	require.Empty(t, q.snapshot())
}

func TestSlaveNameLooksLikeADevice(t *testing.T) {
	b, err := New(&recordingQueue{}, testLogger())
	require.NoError(t, err)
	defer b.Close()

	require.NotEmpty(t, b.SlaveName())
}

func TestCloseIsIdempotent(t *testing.T) {
	b, err := New(&recordingQueue{}, testLogger())
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}
