// Command testserver runs a fake shop and AppDynamics controller for local runs.
//
// Usage:
//
//	testserver [flags]
//
// Flags:
//
//	-port       Port to listen on (default: 8080)
//	-host       Host to bind to (default: localhost)
//	-latency    Extra latency added to shop endpoints (default: 0)
//	-fail-rate  Percentage of catalog requests answered with 500 (default: 0)
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"perfkit/testserver"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	host := flag.String("host", "localhost", "host to bind to")
	latency := flag.Duration("latency", 0, "extra latency for shop endpoints")
	failRate := flag.Int("fail-rate", 0, "percentage of catalog requests that fail")
	flag.Parse()

	server := testserver.NewServer(
		testserver.WithLatency(*latency),
		testserver.WithFailRate(*failRate),
	)
	addr := fmt.Sprintf("%s:%d", *host, *port)

	fmt.Println("perfkit test server")
	fmt.Println("===================")
	fmt.Printf("Listening on http://%s\n\n", addr)
	fmt.Println("Shop:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /user-service/api/users/{login,register}")
	fmt.Println("  GET  /product-service/api/products[/search|/{id}]")
	fmt.Println("  GET  /cart-service/api/cart, POST /cart-service/api/cart/add")
	fmt.Println("  POST /order-service/api/orders/checkout, GET /order-service/api/orders")
	fmt.Println("Controller (client perfkit@customer1 / secret):")
	fmt.Println("  POST /controller/api/oauth/access_token")
	fmt.Println("  GET  /controller/rest/applications[/{id}/metric-data]")
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		os.Exit(0)
	}()

	log.Fatal(http.ListenAndServe(addr, server.Handler()))
}
