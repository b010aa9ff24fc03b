package main

import (
	"context"
	"log"
	"net/http"
	"staffhub/account"
	"staffhub/bizerror"
	"staffhub/chat"
	"staffhub/chat/hub"
	"staffhub/client/es"
	"staffhub/client/mail"
	"staffhub/client/s3"
	"staffhub/codes"
	"staffhub/department"
	"staffhub/domain"
	"staffhub/domain/project"
	"staffhub/domain/task"
	"staffhub/event"
	"staffhub/infra/tracing"
	"staffhub/leave"
	"staffhub/persistence"
	"staffhub/profile"
	"staffhub/servehttp"
	"staffhub/session"
	"staffhub/sessions"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	log.Println("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		log.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			log.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		log.Fatalf("database conneciton failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(context.Background()).AutoMigrate(
		&account.User{}, &department.Department{}, &codes.Counter{},
		&domain.Project{}, &domain.ProjectMember{},
		&domain.Task{}, &domain.TaskAssignee{}, &domain.TaskStatusUpdate{},
		&leave.Leave{}, &profile.Profile{},
		&chat.Message{}, &chat.HiddenWatermark{},
		&event.EventRecord{}).Error
	if err != nil {
		log.Fatalf("database migration failed %v\n", err)
	}

	if closer := tracing.Bootstrap(); closer != nil {
		defer closer.Close()
	}
	mail.Bootstrap()
	s3.Bootstrap()
	es.CreateClientFromEnv()

	event.EventHandlers = append(event.EventHandlers, chat.MessageIndexEventHandle, hub.TaskEventHandle)

	engine := gin.Default()
	engine.Use(bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "staffhub")
	})

	sessions.RegisterSessionsRestAPI(engine)
	account.RegisterResetCodesRestAPI(engine)

	securityMiddleware := session.SimpleAuthFilter()
	session.RegisterSessionRestAPI(engine, securityMiddleware)
	account.RegisterEmployeesRestAPI(engine, securityMiddleware)
	account.RegisterSessionUsersRestAPI(engine, securityMiddleware)
	department.RegisterDepartmentsRestAPI(engine, securityMiddleware)
	project.RegisterProjectsRestAPI(engine, securityMiddleware)
	task.RegisterTasksRestAPI(engine, securityMiddleware)
	leave.RegisterLeavesRestAPI(engine, securityMiddleware)
	profile.RegisterProfileRestAPI(engine, securityMiddleware)
	chat.RegisterMessagesRestAPI(engine, securityMiddleware)
	hub.RegisterChatSocketAPI(engine, securityMiddleware)

	servehttp.StartHTTPServer(engine)
}
