package session

import (
	"errors"
	"sync"
)

type fakeConn struct {
	mu       sync.Mutex
	role     Role
	media    LocalMedia
	events   ConnectionEvents
	applied  [][]byte
	sent     [][]byte
	closed   bool
	applyErr error
	sendErr  error
}

func (c *fakeConn) ApplySignal(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applyErr != nil {
		return c.applyErr
	}
	c.applied = append(c.applied, payload)
	return nil
}

func (c *fakeConn) SendData(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Applied() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.applied...)
}

func (c *fakeConn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeTransport struct {
	mu       sync.Mutex
	conns    []*fakeConn
	err      error
	applyErr error
}

func (t *fakeTransport) NewConnection(role Role, media LocalMedia, events ConnectionEvents) (Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	c := &fakeConn{role: role, media: media, events: events, applyErr: t.applyErr}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *fakeTransport) Last() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

type sentSignal struct {
	to      string
	payload []byte
}

type fakeSignaler struct {
	mu      sync.Mutex
	offers  []sentSignal
	answers []sentSignal
	err     error
}

func (f *fakeSignaler) SendOffer(partnerID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.offers = append(f.offers, sentSignal{partnerID, payload})
	return nil
}

func (f *fakeSignaler) SendAnswer(partnerID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.answers = append(f.answers, sentSignal{partnerID, payload})
	return nil
}

func (f *fakeSignaler) Offers() []sentSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSignal(nil), f.offers...)
}

func (f *fakeSignaler) Answers() []sentSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSignal(nil), f.answers...)
}

var errBadReference = errors.New("bad reference")

type fakePlayer struct {
	mu     sync.Mutex
	loads  []string
	plays  int
	pauses int
}

func (p *fakePlayer) Load(reference string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if reference == "" {
		return errBadReference
	}
	p.loads = append(p.loads, reference)
	return nil
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
	return nil
}

func (p *fakePlayer) Loads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.loads...)
}

func (p *fakePlayer) Counts() (plays, pauses int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays, p.pauses
}

type fakeStream string

func (f fakeStream) ID() string { return string(f) }

type fakeDisplay struct {
	mu       sync.Mutex
	attached []RemoteStream
}

func (d *fakeDisplay) Attach(stream RemoteStream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attached = append(d.attached, stream)
}

func (d *fakeDisplay) Attached() []RemoteStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]RemoteStream(nil), d.attached...)
}

type fakeMedia struct{}

func (fakeMedia) Close() error { return nil }
