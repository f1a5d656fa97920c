package server

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/docker"
	"github.com/perchhub/perch/internal/monitor"
	"github.com/perchhub/perch/internal/server/handlers"
)

func registerRoutes(r chi.Router, mon *monitor.Monitor, dockerClient *docker.Client, info handlers.AgentInfo, logger *zap.Logger) {
	root := handlers.NewRoot(info)
	monitorHandler := handlers.NewMonitor(mon, logger)
	dockerHandler := handlers.NewDocker(dockerClient, logger)

	r.Get("/", root.Handle)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/monitor", func(r chi.Router) {
			r.Get("/cpu", monitorHandler.CPU)
			r.Get("/memory", monitorHandler.Memory)
			r.Get("/storage", monitorHandler.Storage)
			r.Get("/network", monitorHandler.Network)
		})

		r.Get("/system/information", monitorHandler.System)

		r.Route("/docker", func(r chi.Router) {
			r.Get("/containers", dockerHandler.Containers)
			r.Get("/containers/{id}", dockerHandler.ContainerStats)
			r.Post("/containers/{id}/{action:start|stop|restart|pause|resume|kill}", dockerHandler.Action)
			r.Delete("/containers/{id}", dockerHandler.Remove)
			r.Get("/version", dockerHandler.Version)
		})
	})
}
