// Command perfkit bundles the shop load generator, the AppDynamics metrics
// exporter and their supporting tools.
package main

func main() {
	Execute()
}
