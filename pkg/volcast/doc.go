// Package volcast predicts the trading volume of prediction-market events
// and picks comparable settled events for a comparison view.
//
// Quick start:
//
//	v, err := volcast.New(
//	    volcast.WithModelsDir("models/"),
//	    volcast.WithCorpusPath("data.json"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Close()
//
//	res, _, _ := v.PredictOne(volcast.Event{Title: "Will the Fed cut rates in December?"})
//	fmt.Println(res.PredictedVolume)
//
// A Volcast instance is safe for concurrent use once created.
package volcast
