package main

import (
    "encoding/hex"
    "flag"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"

    "edtsp/pkg/protocol"
)

func main() {
    outDir := flag.String("out", "testdata/frame", "output directory for binary frames")
    source := flag.Uint("source", 0x12345678, "source device id written into every frame")
    flag.Parse()
    if err := os.MkdirAll(*outDir, 0o755); err != nil { log.Fatal(err) }
    src := uint32(*source)

    // one frame per kind, plus boundary and broken samples for decoder tests
    writeOut(*outDir, "discovery.bin", protocol.EncodeDiscovery(src, protocol.InterfaceEthernet, "edtsp-sample"))
    writeOut(*outDir, "discovery_name_max.bin", protocol.EncodeDiscovery(src, protocol.InterfaceWiFi, strings.Repeat("n", protocol.MaxNameLen)))
    writeOut(*outDir, "heartbeat_master.bin", protocol.EncodeHeartbeat(src, protocol.RoleMaster, 60000, 3))
    writeOut(*outDir, "handshake_syn.bin", protocol.EncodeHandshake(src, protocol.HandshakeSyn, 0xCAFEBABE,
        protocol.CapTemperature|protocol.CapHumidity, protocol.Interface5G))
    writeOut(*outDir, "config.bin", protocol.EncodeConfig(src, 0xCAFEBABE, 2, 500, true))
    writeOut(*outDir, "data_full.bin", mustData(src, make([]byte, protocol.MaxDataLen)))
    writeOut(*outDir, "data_empty.bin", mustData(src, nil))

    bad := protocol.EncodeHeartbeat(src, protocol.RoleSlave, 1, 1)
    bad[0], bad[1] = bad[1], bad[0]
    writeOut(*outDir, "invalid_magic.bin", bad)
    writeOut(*outDir, "truncated_heartbeat.bin", protocol.EncodeHeartbeat(src, protocol.RoleSlave, 1, 1)[:protocol.HeartbeatSize-1])

    fmt.Println("Generated frames in", *outDir)
}

func mustData(src uint32, payload []byte) []byte {
    b, err := protocol.EncodeData(src, 1, 1234, payload)
    if err != nil { log.Fatal(err) }
    return b
}

func writeOut(dir, name string, b []byte) {
    p := filepath.Join(dir, name)
    if err := os.WriteFile(p, b, 0o644); err != nil { log.Fatal(err) }
    fmt.Printf("%-26s %3d bytes  %s\n", name, len(b), shortHex(b, 32))
}

func shortHex(b []byte, n int) string {
    if len(b) == 0 { return "" }
    n = min(n, len(b))
    enc := hex.EncodeToString(b[:n])
    if len(b) > n { enc += "..." }
    var out []string
    for i := 0; i < len(enc); i += 4 {
        j := min(i+4, len(enc))
        out = append(out, enc[i:j])
    }
    return strings.Join(out, " ")
}
