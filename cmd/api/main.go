package main

import (
	"flag"
	"fmt"
	"runtime/debug"

	"github.com/zeromicro/go-zero/core/conf"
	zerosvc "github.com/zeromicro/go-zero/core/service"
	"github.com/zeromicro/go-zero/rest"

	"brickpay-sol/internal/config"
	"brickpay-sol/internal/pkg/logger"
	"brickpay-sol/internal/server"
	"brickpay-sol/internal/service"
	"brickpay-sol/internal/svc"
)

var configFile = flag.String("f", "etc/api.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.ApiConfig
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	sg := zerosvc.NewServiceGroup()
	defer sg.Stop()

	if c.SyncConf.Enabled {
		sg.Add(service.NewProgramSyncService(&c.SyncConf, serviceContext.Client, serviceContext.ParserDeps()))
	}

	restServer := rest.MustNewServer(rest.RestConf{
		Host: c.Host,
		Port: c.Port,
	})
	server.RegisterHandlers(restServer, serviceContext)
	sg.Add(restServer)

	logger.Infof("Starting payment api at %s", fmt.Sprintf("%s:%d", c.Host, c.Port))
	sg.Start()
}
