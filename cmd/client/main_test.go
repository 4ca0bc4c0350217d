package main

import "testing"

func TestNeedsConnection(t *testing.T) {
	for _, cmd := range []string{"HELP", "EXIT", "QUIT", "DISCONNECT"} {
		if needsConnection(cmd) {
			t.Errorf("%s reconnects a dropped client", cmd)
		}
	}
	for _, cmd := range []string{"LIST", "UPLOAD", "DOWNLOAD"} {
		if !needsConnection(cmd) {
			t.Errorf("%s runs without a connection", cmd)
		}
	}
}
