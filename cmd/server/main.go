package main

import (
	_ "github.com/eleven-am/vlm-docking/docs"
	"github.com/eleven-am/vlm-docking/internal/bootstrap"
)

// @title VLM Docking API
// @version 1.0
// @description Operator and host interface for the VLM docking controller

// @BasePath /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	bootstrap.Run()
}
