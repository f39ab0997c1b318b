package remote

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/smarthome-core/internal/auth"
	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
)

const (
	bobID     = "11111111-1111-1111-1111-111111111111"
	aliceID   = "22222222-2222-2222-2222-222222222222"
	bobBulb   = "aaaaaaaa-0000-0000-0000-000000000001"
	bobSensor = "aaaaaaaa-0000-0000-0000-000000000002"
	aliceBulb = "bbbbbbbb-0000-0000-0000-000000000001"
)

type fakeAccount struct {
	password string
	user     auth.User
}

type fakeAuth struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
	err      error
	calls    int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{accounts: map[string]fakeAccount{
		"bob@x.com":   {password: "pw", user: auth.User{ID: bobID, Username: "bob", Email: "bob@x.com"}},
		"alice@x.com": {password: "secret", user: auth.User{ID: aliceID, Username: "alice", Email: "alice@x.com"}},
	}}
}

func (f *fakeAuth) Authenticate(_ context.Context, email, password string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[strings.ToLower(email)]
	if !ok || a.password != password {
		return nil, auth.ErrInvalidCredentials
	}
	u := a.user
	return &u, nil
}

func (f *fakeAuth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDevices struct {
	mu      sync.Mutex
	devices []*device.Device
	calls   int
	err     error
	// refuseSwitch makes TurnOn/TurnOff report false, as when the device
	// vanished between the read and the write.
	refuseSwitch bool
	// panicOnList makes GetAllDevicesForUser panic.
	panicOnList bool
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{devices: []*device.Device{
		{ID: bobBulb, Name: "Desk Lamp", RoomID: "r1", RoomName: "Office", UserID: bobID, Kind: device.KindLightBulb, Bulb: &device.BulbState{}},
		{ID: bobSensor, Name: "Thermo", RoomID: "r-gone", UserID: bobID, Kind: device.KindTemperatureSensor, Sensor: &device.SensorState{Reading: ptr(21)}},
		{ID: aliceBulb, Name: "Alice Lamp", RoomID: "r2", RoomName: "Den", UserID: aliceID, Kind: device.KindLightBulb, Bulb: &device.BulbState{}},
	}}
}

func (f *fakeDevices) find(id, userID string) *device.Device {
	for _, d := range f.devices {
		if d.ID == id && d.UserID == userID {
			return d
		}
	}
	return nil
}

func (f *fakeDevices) GetAllDevicesForUser(_ context.Context, userID string) ([]device.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panicOnList {
		panic("device store corrupted")
	}
	if f.err != nil {
		return nil, f.err
	}
	var out []device.Device
	for _, d := range f.devices {
		if d.UserID == userID {
			out = append(out, *d.Clone())
		}
	}
	return out, nil
}

func (f *fakeDevices) GetDeviceForUser(_ context.Context, id, userID string) (*device.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	d := f.find(id, userID)
	if d == nil {
		return nil, device.ErrDeviceNotFound
	}
	return d.Clone(), nil
}

func (f *fakeDevices) setPower(id, userID string, on bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	d := f.find(id, userID)
	if d == nil || !d.IsBulb() || f.refuseSwitch {
		return false, nil
	}
	d.Bulb.On = on
	return true, nil
}

func (f *fakeDevices) TurnOn(_ context.Context, id, userID string) (bool, error) {
	return f.setPower(id, userID, true)
}

func (f *fakeDevices) TurnOff(_ context.Context, id, userID string) (bool, error) {
	return f.setPower(id, userID, false)
}

func (f *fakeDevices) isOn(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.ID == id && d.Bulb != nil {
			return d.Bulb.On
		}
	}
	return false
}

func (f *fakeDevices) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testClient is the terminal side of a session.
type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func newTestClient(t *testing.T, conn net.Conn) *testClient {
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

// readUntilPrompt returns everything written before the next prompt, and
// the prompt itself.
func (c *testClient) readUntilPrompt() (string, string) {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test helper

	var buf []byte
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			c.t.Fatalf("reading until prompt: %v (got %q)", err, buf)
		}
		buf = append(buf, b)
		s := string(buf)
		for _, p := range []string{promptGuest, promptUser} {
			if strings.HasSuffix(s, p) {
				return strings.TrimSuffix(s, p), p
			}
		}
	}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test helper
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.t.Fatalf("sending %q: %v", line, err)
	}
}

// command sends line and returns the reply without its trailing newline,
// together with the prompt that follows it.
func (c *testClient) command(line string) (string, string) {
	c.t.Helper()
	c.send(line)
	reply, prompt := c.readUntilPrompt()
	return strings.TrimSuffix(reply, "\n"), prompt
}

// readToEOF returns what remains before the session closes the stream.
func (c *testClient) readToEOF() string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test helper
	rest, err := io.ReadAll(c.r)
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		c.t.Fatalf("reading to EOF: %v (got %q)", err, rest)
	}
	return string(rest)
}

type sessionHarness struct {
	client  *testClient
	auth    *fakeAuth
	devices *fakeDevices
	cancel  context.CancelFunc
	done    chan struct{}
}

func startSession(t *testing.T, opts SessionOptions) *sessionHarness {
	t.Helper()
	serverConn, clientConn := net.Pipe()

	h := &sessionHarness{
		client:  newTestClient(t, clientConn),
		auth:    newFakeAuth(),
		devices: newFakeDevices(),
		done:    make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	sess := NewSession(serverConn, Deps{Auth: h.auth, Devices: h.devices}, opts, logging.Discard())
	go func() {
		sess.Run(ctx)
		close(h.done)
	}()

	t.Cleanup(func() {
		cancel()
		clientConn.Close()
		<-h.done
	})
	return h
}

// startGreeted starts a session and consumes the banner.
func startGreeted(t *testing.T) *sessionHarness {
	t.Helper()
	h := startSession(t, SessionOptions{})
	h.client.readUntilPrompt()
	return h
}

// startLoggedIn starts a session already logged in as bob.
func startLoggedIn(t *testing.T) *sessionHarness {
	t.Helper()
	h := startGreeted(t)
	if reply, _ := h.client.command("LOGIN bob@x.com pw"); !strings.HasPrefix(reply, "Welcome bob") {
		t.Fatalf("login reply = %q", reply)
	}
	return h
}

func (h *sessionHarness) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
}
