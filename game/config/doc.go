// Package config manages the board presets the server can deal from.
//
// A preset is a JSON file in the presets directory describing one board
// shape:
//
//	{
//	  "name": "classic",
//	  "description": "Seven by seven, thirty percent zeros",
//	  "size": 49,
//	  "zero_percent": 30,
//	  "min_value": 1,
//	  "max_value": 999
//	}
//
// The classic preset is always available; a classic.json on disk overrides
// the compiled-in one. Presets are validated with engine.ValidateBoardConfig
// when loaded and cached until RefreshCache is called.
//
// Usage:
//
//	manager, err := config.NewManager("presets")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	board := manager.GetDefault()
//	presets, err := manager.ListPresets()
package config
