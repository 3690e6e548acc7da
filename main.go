package main

import (
	"flag"
	"gpaylink/config"
	"gpaylink/internal"
	"gpaylink/services"
	"time"
)

func main() {

	logger := internal.NewLogger("internal", false, nil)

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	logger.Info("using config file: " + *configPath)
	conf, err := config.GetConfig(*configPath)
	if err != nil {
		logger.Error("boot", err)
		return
	}

	var mongo services.Database
	if conf.Mongo.Enabled {
		mongo, err = internal.NewMongoClient(conf)
		if err != nil {
			logger.Error("mongo client", err)
			return
		}
		defer func() {
			_ = mongo.Close()
		}()
		logger.Info("mongo client initialized")
	}

	newLogger := func(category string) services.LogHandler {
		l := internal.NewLogger(category, conf.IsDebug, mongo)
		if conf.LogLevel != "" {
			l.SetLevel(conf.LogLevel)
		}
		return l
	}

	walletConf, err := conf.WalletConfig()
	if err != nil {
		logger.Error("google pay config", err)
		return
	}

	var gateway services.Gateway
	if walletConf.IsSdkMode() {
		gw, e := internal.NewGateway(walletConf, time.Duration(conf.Gateway.TimeoutSeconds)*time.Second)
		if e != nil {
			logger.Error("gateway client", e)
			return
		}
		gw.SetLogger(newLogger("gateway"))
		gateway = gw
		logger.Info("sdk mode: gateway client initialized")
	} else {
		logger.Info("backend mode: gateway credentials not configured")
	}

	signer := internal.NewSigner(conf.WalletHost.Secret)

	host := internal.NewWalletHost(conf.WalletHost.Url, walletConf.Environment(), signer, time.Duration(conf.WalletHost.TimeoutSeconds)*time.Second)
	host.SetLogger(newLogger("wallet_host"))

	wallet := internal.NewWalletAdapter(host, conf.GooglePay.RequestCode)
	wallet.SetLogger(newLogger("wallet"))

	engine := internal.NewEngine(walletConf, gateway, wallet)
	engine.SetLogger(newLogger("engine"))

	server := internal.NewServer(conf)
	server.SetLogger(newLogger("server"))
	server.SetSigner(signer)
	server.SetPaymentsService(engine)

	err = server.Start()
	if err != nil {
		logger.Error("server start", err)
		return
	}

}
