// Command voicecollect runs the phrase distribution and audio intake service
// and provides operator commands for seeding phrases, exporting submissions
// and inspecting collection progress.
//
// The serve command hosts the HTTP API. Every other command opens the phrase
// store directly, so it can run alongside a live daemon against the same
// database.
package main
