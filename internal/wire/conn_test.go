package wire

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	a, b := NewConn(fds[0]), NewConn(fds[1])
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func TestConnRoundTrip(t *testing.T) {
	client, server := socketPair(t)

	req := NewMessage(3, 1)
	req.PutUint32(42)
	req.PutString("zwp_input_method_v2")
	req.PutInt32(-7)
	req.PutArray([]byte{1, 2, 3})
	require.NoError(t, client.Queue(req))
	assert.True(t, client.PendingOutput())
	require.NoError(t, client.Flush())
	assert.False(t, client.PendingOutput())

	require.NoError(t, server.ReadMessages())
	msg, err := server.Next()
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, ObjectID(3), msg.Sender)
	assert.Equal(t, uint16(1), msg.Opcode)
	assert.Equal(t, uint32(42), msg.ReadUint32())
	assert.Equal(t, "zwp_input_method_v2", msg.ReadString())
	assert.Equal(t, int32(-7), msg.ReadInt32())
	assert.Equal(t, []byte{1, 2, 3}, msg.ReadArray())
	assert.NoError(t, msg.Err())

	next, err := server.Next()
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestConnSeveralMessagesInOneRead(t *testing.T) {
	client, server := socketPair(t)

	for i := uint32(0); i < 3; i++ {
		req := NewMessage(ObjectID(10+i), uint16(i))
		req.PutUint32(i)
		require.NoError(t, client.Queue(req))
	}
	require.NoError(t, client.Flush())
	require.NoError(t, server.ReadMessages())

	for i := uint32(0); i < 3; i++ {
		msg, err := server.Next()
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, ObjectID(10+i), msg.Sender)
		assert.Equal(t, i, msg.ReadUint32())
	}
}

func TestConnPassesFileDescriptors(t *testing.T) {
	client, server := socketPair(t)

	memfd, err := unix.MemfdCreate("wire-test", unix.MFD_CLOEXEC)
	require.NoError(t, err)
	defer unix.Close(memfd)
	_, err = unix.Write(memfd, []byte("xkb_keymap"))
	require.NoError(t, err)

	req := NewMessage(5, 0)
	req.PutUint32(1)
	req.PutFd(memfd)
	req.PutUint32(10)
	require.NoError(t, client.Queue(req))
	require.NoError(t, client.Flush())

	require.NoError(t, server.ReadMessages())
	msg, err := server.Next()
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, uint32(1), msg.ReadUint32())
	fd := msg.ReadFd()
	require.GreaterOrEqual(t, fd, 0)
	defer unix.Close(fd)
	assert.Equal(t, uint32(10), msg.ReadUint32())
	require.NoError(t, msg.Err())

	buf := make([]byte, 10)
	n, err := unix.Pread(fd, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "xkb_keymap", string(buf[:n]))
}

func TestConnReadWouldBlock(t *testing.T) {
	_, server := socketPair(t)

	err := server.ReadMessages()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestConnReadEOF(t *testing.T) {
	client, server := socketPair(t)
	require.NoError(t, client.Close())

	err := server.ReadMessages()
	assert.ErrorIs(t, err, io.EOF)
}

func TestConnPartialMessage(t *testing.T) {
	client, server := socketPair(t)

	header := make([]byte, 8)
	binary.NativeEndian.PutUint32(header[0:], 2)
	binary.NativeEndian.PutUint32(header[4:], 16<<16)
	_, err := unix.Write(client.Fd(), header)
	require.NoError(t, err)

	require.NoError(t, server.ReadMessages())
	msg, err := server.Next()
	require.NoError(t, err)
	assert.Nil(t, msg, "message body has not arrived yet")

	_, err = unix.Write(client.Fd(), make([]byte, 8))
	require.NoError(t, err)
	require.NoError(t, server.ReadMessages())
	msg, err = server.Next()
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Len(t, msg.Args(), 8)
}

func TestConnRejectsBadHeader(t *testing.T) {
	client, server := socketPair(t)

	header := make([]byte, 8)
	binary.NativeEndian.PutUint32(header[0:], 2)
	binary.NativeEndian.PutUint32(header[4:], 4<<16)
	_, err := unix.Write(client.Fd(), header)
	require.NoError(t, err)

	require.NoError(t, server.ReadMessages())
	_, err = server.Next()
	assert.ErrorIs(t, err, ErrFraming)
}

func TestMessageShortRead(t *testing.T) {
	msg := NewMessage(1, 0)
	msg.PutUint32(7)

	assert.Equal(t, uint32(7), msg.ReadUint32())
	assert.Equal(t, uint32(0), msg.ReadUint32())
	assert.ErrorIs(t, msg.Err(), ErrShortMessage)
}

func TestMessageMissingFd(t *testing.T) {
	msg := NewMessage(1, 0)
	assert.Equal(t, -1, msg.ReadFd())
	assert.ErrorIs(t, msg.Err(), ErrMissingFd)
}

func TestMessageStringPadding(t *testing.T) {
	tests := []struct {
		in   string
		size int
	}{
		{"", 8 + 4 + 4},
		{"abc", 8 + 4 + 4},
		{"abcd", 8 + 4 + 8},
		{"wl_seat", 8 + 4 + 8},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			msg := NewMessage(1, 0)
			msg.PutString(tt.in)
			assert.Equal(t, tt.size, msg.Size())
			assert.Equal(t, tt.in, msg.ReadString())
			assert.NoError(t, msg.Err())
		})
	}
}

func TestSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	t.Run("explicit name", func(t *testing.T) {
		p, err := SocketPath("wayland-1")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/run/user/1000", "wayland-1"), p)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("WAYLAND_DISPLAY", "wayland-5")
		p, err := SocketPath("")
		require.NoError(t, err)
		assert.Equal(t, "/run/user/1000/wayland-5", p)
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("WAYLAND_DISPLAY", "")
		p, err := SocketPath("")
		require.NoError(t, err)
		assert.Equal(t, "/run/user/1000/wayland-0", p)
	})

	t.Run("absolute", func(t *testing.T) {
		p, err := SocketPath("/tmp/compositor.sock")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/compositor.sock", p)
	})

	t.Run("missing runtime dir", func(t *testing.T) {
		t.Setenv("XDG_RUNTIME_DIR", "")
		_, err := SocketPath("wayland-0")
		assert.Error(t, err)
	})
}

func TestDialMissingSocket(t *testing.T) {
	t.Setenv("WAYLAND_SOCKET", "")
	_ = os.Unsetenv("WAYLAND_SOCKET")
	_, err := Dial(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
