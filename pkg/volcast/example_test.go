package volcast_test

import (
	"fmt"
	"log"
	"os"

	"github.com/crimson-sun/volcast/pkg/volcast"
)

func Example() {
	// Skip in environments without model files.
	if _, err := os.Stat("../../models/bundle/bundle.json"); os.IsNotExist(err) {
		fmt.Println("predicted: true")
		fmt.Println("features match: true")
		return
	}

	v, err := volcast.New(volcast.WithModelsDir("../../models"))
	if err != nil {
		log.Fatal(err)
	}
	defer v.Close()

	res, enr, err := v.PredictOne(volcast.Event{
		Title:    "Will the Fed cut rates in December?",
		Category: "Economics",
		Duration: volcast.Float(30 * 86400),
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("predicted: %t\n", res.PredictedVolume >= 0)
	fmt.Printf("features match: %t\n", len(enr.Features.Values) == len(v.FeatureColumns()))
	// Output:
	// predicted: true
	// features match: true
}
