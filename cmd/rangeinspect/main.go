// Command rangeinspect resolves a range-initialization configuration against
// graph-node names and prints the effective rule per quantization point. Use
// it to check which per-layer rule wins for a given scope before running a
// calibration pass.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-quant/config"
	"github.com/nvr-ai/go-quant/quantization"
	"github.com/nvr-ai/go-quant/rangeinit"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to the range init section (.json or .yaml)")
		group      = flag.String("group", "activations", "Quantizer group to resolve: weights or activations")
		port       = flag.Int("port", -1, "Activation input port; negative resolves the operator output")
	)
	flag.Parse()

	if *configFile == "" {
		log.Fatal("Config path is required (-config)")
	}
	if flag.NArg() == 0 {
		log.Fatal("At least one graph-node name is required")
	}

	data, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}

	var params *rangeinit.RangeInitParams
	switch strings.ToLower(filepath.Ext(*configFile)) {
	case ".yaml", ".yml":
		params, err = config.ParseYAML(data)
	default:
		params, err = config.ParseJSON(data)
	}
	if err != nil {
		log.Fatalf("Failed to decode config: %v", err)
	}

	for _, node := range flag.Args() {
		var point quantization.InsertionPoint
		switch quantization.QuantizerGroup(*group) {
		case quantization.GroupWeights:
			point = quantization.NewWeightInsertionPoint(node)
		case quantization.GroupActivations:
			point = quantization.NewActivationInsertionPoint(node, *port)
		default:
			log.Fatalf("Unknown quantizer group %q", *group)
		}

		cfg, err := params.InitConfigForPoint(point)
		if err != nil {
			fmt.Printf("%s: no applicable rule (%v)\n", point, err)
			continue
		}
		line := fmt.Sprintf("%s: type=%s num_init_samples=%d", point, cfg.InitType, cfg.NumInitSamples)
		if cfg.InitType == rangeinit.InitTypePercentile {
			minP, maxP := cfg.PercentileBounds()
			line += fmt.Sprintf(" percentiles=[%v, %v]", minP, maxP)
		}
		fmt.Println(line)
	}
}
