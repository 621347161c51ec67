// token 簽發 API 使用的 JWT，供排程器或維運人員呼叫管理端點。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"oee-monitor/internal/domain/auth"
	authinfra "oee-monitor/internal/infrastructure/auth"
	"oee-monitor/internal/infrastructure/config"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	subject := flag.String("sub", "scheduler", "token subject")
	roleStr := flag.String("role", string(auth.RoleService), "role: admin|operator|viewer|service")
	flag.Parse()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	role, err := auth.ParseRole(*roleStr)
	if err != nil {
		log.Fatalf("invalid role: %v", err)
	}

	token, exp, err := authinfra.NewJWTIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Issue(*subject, role)
	if err != nil {
		log.Fatalf("issue token failed: %v", err)
	}
	fmt.Fprintf(os.Stderr, "expires at %s\n", exp.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(token)
}
