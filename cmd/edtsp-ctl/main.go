package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "io"
    "net/http"
    "os"
    "os/signal"
    "time"

    "edtsp/pkg/config"
    "edtsp/pkg/protocol"
    "edtsp/pkg/protocol/codec"
    "edtsp/pkg/status"
    "edtsp/pkg/transport/udp"
)

func main() {
    group := flag.String("group", config.DefaultGroup, "multicast group to join (ip:port)")
    iface := flag.String("iface", "", "network interface name")
    count := flag.Int("count", 0, "stop after this many packets (0 = unlimited)")
    timeout := flag.Duration("timeout", 0, "stop after this long (0 = until Ctrl+C)")
    asJSON := flag.Bool("json", false, "print packets as JSON lines")
    statusURL := flag.String("status", "", "fetch a node's status from http://host:port/status and exit")
    flag.Parse()

    if *statusURL != "" {
        if err := printStatus(*statusURL); err != nil { fatalf("status: %v", err) }
        return
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
    defer stop()
    if *timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, *timeout)
        defer cancel()
    }

    conn, err := udp.Listen(ctx, udp.Options{Group: *group, Interface: *iface, TTL: 1, Loopback: true})
    if err != nil { fatalf("listen: %v", err) }
    defer conn.Close()
    fmt.Fprintf(os.Stderr, "listening on %s, group %s\n", conn.LocalAddr(), conn.Group())

    seen := 0
    for *count == 0 || seen < *count {
        p, err := conn.Recv(ctx)
        if err != nil { break }
        seen++
        pkt, derr := protocol.Decode(p.Data)
        if *asJSON {
            printJSON(p.From, pkt, derr)
            continue
        }
        if derr != nil {
            fmt.Printf("%s  %-9s %d bytes (%v)\n", time.Now().Format("15:04:05.000"), "INVALID", len(p.Data), derr)
            continue
        }
        fmt.Printf("%s  %-9s from %s  %s\n", time.Now().Format("15:04:05.000"), pkt.Kind(), protocol.FormatID(pkt.Source()), describe(pkt))
    }
    if d := conn.Dropped(); d > 0 {
        fmt.Fprintf(os.Stderr, "%d datagrams dropped (queue full)\n", d)
    }
}

func describe(pkt protocol.Packet) string {
    switch p := pkt.(type) {
    case *protocol.Discovery:
        return fmt.Sprintf("name=%q iface=%s v%d", p.Name, p.Interface, p.Version)
    case *protocol.Heartbeat:
        return fmt.Sprintf("role=%s uptime=%dms devices=%d", p.Role, p.UptimeMS, p.ActiveDevices)
    case *protocol.Handshake:
        return fmt.Sprintf("step=%d target=%s caps=%s iface=%s", p.Step, protocol.FormatID(p.Target), p.Capabilities, p.Interface)
    case *protocol.Config:
        return fmt.Sprintf("target=%s sensor=%d rate=%dms enable=%t", protocol.FormatID(p.Target), p.SensorID, p.SamplingRateMS, p.Enable)
    case *protocol.Data:
        return fmt.Sprintf("sensor=%d ts=%d len=%d", p.SensorID, p.TimestampMS, len(p.Payload))
    default:
        return ""
    }
}

func printJSON(from string, pkt protocol.Packet, derr error) {
    out := map[string]any{"from": from, "at": time.Now().Format(time.RFC3339Nano)}
    if derr != nil {
        out["error"] = derr.Error()
        out["reason"] = protocol.DropReason(derr)
    } else {
        out["kind"] = pkt.Kind().String()
        out["source"] = protocol.FormatID(pkt.Source())
        out["packet"] = pkt
    }
    b, _ := json.Marshal(out)
    fmt.Println(string(b))
}

// printStatus fetches a CBOR snapshot and prints it as a table.
func printStatus(url string) error {
    reg, err := codec.NewRegistry()
    if err != nil { return err }
    c, err := reg.Lookup("cbor")
    if err != nil { return err }

    client := &http.Client{Timeout: 5 * time.Second}
    resp, err := client.Get(url + "?format=cbor")
    if err != nil { return err }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK { return fmt.Errorf("unexpected status %s", resp.Status) }
    body, err := io.ReadAll(resp.Body)
    if err != nil { return err }

    var s status.Snapshot
    if err := c.Unmarshal(body, &s); err != nil { return err }
    fmt.Printf("instance %s\n", s.Instance)
    for _, line := range s.Lines() {
        fmt.Println(line)
    }
    return nil
}

func fatalf(format string, args ...any) {
    fmt.Fprintf(os.Stderr, "edtsp-ctl: "+format+"\n", args...)
    os.Exit(1)
}
