// Package provider implements a small generic provider framework: named
// factories that build swappable implementations from configuration, and
// selectors that pick one implementation at runtime.
//
// Speech-recognition backends are providers. Each adapter package registers
// a Factory under its backend name; configuration lists the names to build,
// and RankSelector orders the built instances by Priority.
//
// # Usage
//
//	reg := provider.NewRegistry[transcription.Backend]()
//	reg.RegisterFactory("whisper_cpp", whispercpp.Factory())
//	b, err := reg.Create("whisper_cpp", cfg)
package provider
