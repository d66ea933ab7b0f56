// Package chat is the WebSocket front end of the duality service. Actors join
// a group room and post command lines; replies fan out to everyone in the
// room. The app subpackage holds the server.
package chat
