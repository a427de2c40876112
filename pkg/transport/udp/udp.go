// Package udp implements the datagram transport over IPv4 multicast.
package udp

import (
    "context"
    "errors"
    "fmt"
    "net"
    "sync"
    "sync/atomic"

    "go.uber.org/zap"
    "golang.org/x/net/ipv4"

    "edtsp/pkg/transport"
)

// Options configures a multicast endpoint.
type Options struct {
    Group     string // host:port, host must be an IPv4 multicast address
    Interface string // optional NIC name; empty lets the kernel choose
    TTL       int
    Loopback  bool
    QueueSize int
}

// Conn is a joined multicast group endpoint.
type Conn struct {
    conn    net.PacketConn
    pc      *ipv4.PacketConn
    group   *net.UDPAddr
    ifi     *net.Interface
    rxCh    chan transport.Packet
    closeCh chan struct{}
    once    sync.Once
    dropped atomic.Uint64
    log     *zap.Logger
}

// Listen binds the group port, joins the group and starts the reader.
// The endpoint closes when ctx is done.
func Listen(ctx context.Context, o Options) (*Conn, error) {
    group, err := net.ResolveUDPAddr("udp4", o.Group)
    if err != nil { return nil, fmt.Errorf("udp: resolve %q: %w", o.Group, err) }
    if !group.IP.IsMulticast() { return nil, fmt.Errorf("udp: %s is not a multicast address", group.IP) }

    var ifi *net.Interface
    if o.Interface != "" {
        ifi, err = net.InterfaceByName(o.Interface)
        if err != nil { return nil, fmt.Errorf("udp: interface %q: %w", o.Interface, err) }
    }

    lc := net.ListenConfig{Control: reuseAddr}
    c, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf("0.0.0.0:%d", group.Port))
    if err != nil { return nil, fmt.Errorf("udp: listen: %w", err) }

    pc := ipv4.NewPacketConn(c)
    if err := pc.JoinGroup(ifi, &net.UDPAddr{IP: group.IP}); err != nil {
        _ = c.Close()
        return nil, fmt.Errorf("udp: join %s: %w", group.IP, err)
    }
    if ifi != nil {
        if err := pc.SetMulticastInterface(ifi); err != nil {
            _ = c.Close()
            return nil, fmt.Errorf("udp: multicast interface: %w", err)
        }
    }
    ttl := o.TTL
    if ttl <= 0 { ttl = 1 }
    if err := pc.SetMulticastTTL(ttl); err != nil {
        _ = c.Close()
        return nil, fmt.Errorf("udp: multicast ttl: %w", err)
    }
    if err := pc.SetMulticastLoopback(o.Loopback); err != nil {
        _ = c.Close()
        return nil, fmt.Errorf("udp: multicast loopback: %w", err)
    }
    // best effort; not every platform reports the destination address
    _ = pc.SetControlMessage(ipv4.FlagDst, true)

    q := o.QueueSize
    if q <= 0 { q = transport.DefaultQueueSize }
    u := &Conn{
        conn:    c,
        pc:      pc,
        group:   group,
        ifi:     ifi,
        rxCh:    make(chan transport.Packet, q),
        closeCh: make(chan struct{}),
        log:     zap.L().Named("udp"),
    }
    go u.readLoop()
    go func() {
        select {
        case <-ctx.Done():
            _ = u.Close()
        case <-u.closeCh:
        }
    }()
    u.log.Info("joined multicast group", zap.String("group", group.String()), zap.Int("ttl", ttl), zap.Bool("loopback", o.Loopback))
    return u, nil
}

func (u *Conn) Kind() transport.Kind { return transport.KindUDP }

// LocalAddr returns the bound socket address.
func (u *Conn) LocalAddr() net.Addr { return u.conn.LocalAddr() }

// Group returns the multicast group address.
func (u *Conn) Group() *net.UDPAddr { return u.group }

func (u *Conn) Send(ctx context.Context, b []byte) error {
    if err := ctx.Err(); err != nil { return err }
    select {
    case <-u.closeCh:
        return transport.ErrClosed
    default:
    }
    if dl, ok := ctx.Deadline(); ok {
        _ = u.conn.SetWriteDeadline(dl)
    }
    _, err := u.pc.WriteTo(b, nil, u.group)
    return err
}

func (u *Conn) Recv(ctx context.Context) (transport.Packet, error) {
    select {
    case <-ctx.Done():
        return transport.Packet{}, ctx.Err()
    case <-u.closeCh:
        return transport.Packet{}, transport.ErrClosed
    case p := <-u.rxCh:
        return p, nil
    }
}

func (u *Conn) Dropped() uint64 { return u.dropped.Load() }

func (u *Conn) Close() error {
    var err error
    u.once.Do(func() {
        close(u.closeCh)
        _ = u.pc.LeaveGroup(u.ifi, &net.UDPAddr{IP: u.group.IP})
        err = u.conn.Close()
    })
    return err
}

func (u *Conn) readLoop() {
    buf := make([]byte, transport.MaxDatagram)
    for {
        n, cm, src, err := u.pc.ReadFrom(buf)
        if err != nil {
            select {
            case <-u.closeCh:
                return
            default:
            }
            if errors.Is(err, net.ErrClosed) { return }
            u.log.Debug("read error", zap.Error(err))
            continue
        }
        // another group may share the port on this host
        if cm != nil && cm.Dst != nil && !cm.Dst.Equal(u.group.IP) {
            continue
        }
        pkt := make([]byte, n)
        copy(pkt, buf[:n])
        from := ""
        if src != nil { from = src.String() }
        // drop if full
        select {
        case u.rxCh <- transport.Packet{Data: pkt, From: from}:
        default:
            u.dropped.Add(1)
        }
    }
}

var _ transport.Datagram = (*Conn)(nil)
