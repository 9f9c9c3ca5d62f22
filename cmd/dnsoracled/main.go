// dnsoracled serves internal/oracle.Engine over gRPC, following
// cmd/dnsscience-grpc's shape: flags override a YAML config file, a
// Prometheus metrics endpoint runs alongside the gRPC listener, and the
// gRPC server itself is built from api/grpc/server with health and
// reflection registered.
package main

import (
	"flag"
	"log"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dnsscience/dnssecoracle/api/grpc/middleware"
	"github.com/dnsscience/dnssecoracle/api/grpc/oracleservice"
	"github.com/dnsscience/dnssecoracle/api/grpc/server"
	"github.com/dnsscience/dnssecoracle/internal/dnssec"
	"github.com/dnsscience/dnssecoracle/internal/eventbus"
	"github.com/dnsscience/dnssecoracle/internal/oracle"
	_ "github.com/dnsscience/dnssecoracle/internal/rpccodec"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config file")
	listen := flag.String("listen", "", "gRPC listen address (overrides config)")
	metricsListen := flag.String("metrics-listen", "", "Prometheus metrics listen address (overrides config)")
	apiKeys := flag.String("api-keys", "", "Comma-separated API keys (overrides config)")
	cert := flag.String("tls-cert", "", "TLS certificate file (overrides config)")
	key := flag.String("tls-key", "", "TLS private key file (overrides config)")
	anchorZone := flag.String("anchor-zone-file", "", "Trust anchor zone file (overrides config)")
	flag.Parse()

	var fileCfg *ConfigFile
	if *cfgPath != "" {
		c, err := LoadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		fileCfg = c
	}

	eListen := ":8443"
	eMetrics := ":9090"
	eAPIKeys := []string{}
	eCert := ""
	eKey := ""
	eAnchorZone := ""
	var eAdmins []string
	var eAlgorithms, eDigests, eNSEC3Digests map[uint8]string
	var ePerSecond float64
	var eBurst int

	if fileCfg != nil {
		if fileCfg.Listen != "" {
			eListen = fileCfg.Listen
		}
		if fileCfg.MetricsListen != "" {
			eMetrics = fileCfg.MetricsListen
		}
		if len(fileCfg.APIKeys) > 0 {
			eAPIKeys = append(eAPIKeys, fileCfg.APIKeys...)
		}
		if fileCfg.TLSCert != "" {
			eCert = fileCfg.TLSCert
		}
		if fileCfg.TLSKey != "" {
			eKey = fileCfg.TLSKey
		}
		if fileCfg.AnchorZoneFile != "" {
			eAnchorZone = fileCfg.AnchorZoneFile
		}
		eAdmins = fileCfg.AdminIdentities
		eAlgorithms = fileCfg.BootstrapAlgorithms
		eDigests = fileCfg.BootstrapDigests
		eNSEC3Digests = fileCfg.BootstrapNSEC3Digests
		ePerSecond = fileCfg.SubmissionsPerSecond
		eBurst = fileCfg.SubmissionBurst
	}
	if *listen != "" {
		eListen = *listen
	}
	if *metricsListen != "" {
		eMetrics = *metricsListen
	}
	if *apiKeys != "" {
		eAPIKeys = strings.Split(*apiKeys, ",")
	}
	if *cert != "" {
		eCert = *cert
	}
	if *key != "" {
		eKey = *key
	}
	if *anchorZone != "" {
		eAnchorZone = *anchorZone
	}
	if eAnchorZone == "" {
		log.Fatalf("no trust anchor zone file configured (-anchor-zone-file or anchor_zone_file)")
	}

	anchors, err := loadAnchors(eAnchorZone)
	if err != nil {
		log.Fatalf("load trust anchors: %v", err)
	}

	acl := oracle.NewAdminACL(false)
	for _, id := range eAdmins {
		acl.Allow(id)
	}

	limiterCfg := oracle.DefaultSubmissionLimiterConfig()
	if ePerSecond > 0 {
		limiterCfg.PerSecond = ePerSecond
	}
	if eBurst > 0 {
		limiterCfg.Burst = eBurst
	}

	bus := eventbus.New(256)
	registry := dnssec.NewRegistry(bus)
	bootstrapRegistry(registry, eAlgorithms, eDigests, eNSEC3Digests)

	engine := oracle.New(oracle.Config{
		Anchors:  anchors,
		Registry: registry,
		Bus:      bus,
		ACL:      acl,
		Limiter:  oracle.NewSubmissionLimiter(limiterCfg),
	})

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("metrics listening on %s", eMetrics)
		if err := http.ListenAndServe(eMetrics, mux); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()

	cfg := server.Config{ListenAddr: eListen, TLSCertFile: eCert, TLSKeyFile: eKey, APIKeys: eAPIKeys}
	deps := server.Deps{
		Unary:  []grpc.UnaryServerInterceptor{middleware.UnaryLoggingMetrics()},
		Stream: []grpc.StreamServerInterceptor{middleware.StreamLoggingMetrics()},
	}
	deps.Register = func(s *grpc.Server) {
		h := health.NewServer()
		healthpb.RegisterHealthServer(s, h)
		reflection.Register(s)
		oracleservice.RegisterOracleServer(s, &oracleservice.Server{Engine: engine})
	}

	gs, ln, err := server.New(cfg, deps)
	if err != nil {
		log.Fatalf("server: %v", err)
	}
	log.Printf("gRPC listening on %s", ln.Addr())
	if err := gs.Serve(ln); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// bootstrapRegistry pre-registers internal/dnssec's built-in algorithms,
// digests, and NSEC3 digests named in config under their configured
// registry IDs, using the "bootstrap" identity for the audit events
// internal/dnssec.Registry publishes.
func bootstrapRegistry(reg *dnssec.Registry, algorithms, digests, nsec3Digests map[uint8]string) {
	for id, name := range algorithms {
		switch name {
		case "RSASHA256":
			reg.SetAlgorithm(id, dnssec.RSASHA256{}, "bootstrap")
		case "ECDSAP256SHA256":
			reg.SetAlgorithm(id, dnssec.ECDSAP256SHA256{}, "bootstrap")
		default:
			log.Fatalf("bootstrap_algorithms: unknown algorithm %q", name)
		}
	}
	for id, name := range digests {
		switch name {
		case "SHA1":
			reg.SetDigest(id, dnssec.SHA1Digest{}, "bootstrap")
		case "SHA256":
			reg.SetDigest(id, dnssec.SHA256Digest{}, "bootstrap")
		default:
			log.Fatalf("bootstrap_digests: unknown digest %q", name)
		}
	}
	for id, name := range nsec3Digests {
		switch name {
		case "SHA1":
			reg.SetNSEC3Digest(id, dnssec.SHA1NSEC3Digest{}, "bootstrap")
		default:
			log.Fatalf("bootstrap_nsec3_digests: unknown nsec3 digest %q", name)
		}
	}
}
