package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ehsas/internal/config"
	"ehsas/internal/mailer"
	"ehsas/internal/queue"
	"ehsas/internal/store"
)

// Worker consumes mail jobs from the queue and delivers them over SMTP.
func main() {
	cfg := config.Load()
	logrus.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logrus.Info("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisDialLimit, cfg.RedisReadLimit)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "ehsas:mail")
	}

	sender := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
		cfg.SMTPFromEmail, cfg.SMTPFromName, cfg.MailSkip)

	jobs, err := q.Consume(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("queue consume init failed")
	}

	logrus.Info("worker started, waiting for mail jobs")
	for job := range jobs {
		log := logrus.WithFields(logrus.Fields{"kind": job.Kind, "to": job.To})

		sendCtx, cancelSend := context.WithTimeout(ctx, 30*time.Second)
		err := sender.Send(sendCtx, job.To, job.Subject, job.Body)
		cancelSend()
		if err != nil {
			log.WithError(err).Warn("mail delivery failed")
			continue
		}
		log.Info("mail delivered")
	}

	logrus.Info("worker stopped")
}
