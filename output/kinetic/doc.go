// Package kinetic is a fixed-schema demo stream. Every connected client receives a
// {"data":[...]} frame of tracked objects on connect and then on every broadcast tick.
package kinetic
