// Package matrix is the Matrix front end of the bot. Each joined room is one
// conversation. Incoming text messages are parsed as commands and queued per
// room, so commands of one room are handled in order while rooms proceed
// independently. The Bridge is also the controller's Sender.
package matrix
