package main

import (
	"os"

	"github.com/tbourn/go-interview-backend/cmd"
)

// @title       Interview Backend API
// @version     1.0
// @description AI-led candidate interviews with streamed replies and merged resume/interview assessments.
// @BasePath    /api/v1
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
