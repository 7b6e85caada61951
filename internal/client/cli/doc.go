// Package cli provides the interactive tracker command-line client.
//
// It wires configuration, the local credential store, the detection API
// client, and an interactive REPL. Typical flow: prompt for credentials,
// start a background connectivity watcher, and execute user commands.
//
// Key features:
//   - Register / Login / Logout against the local credential store
//   - Live streaming: camera frames over a websocket, annotated frames back
//   - One-shot image and video analysis with downloaded artifacts
//   - Runtime detection settings (target color, confidence threshold)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
