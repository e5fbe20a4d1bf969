// Package common holds the types shared by every commlink package:
// the Message unit of transfer, peer address parsing, the transport
// configuration struct and the logger / metrics setup.
package common
