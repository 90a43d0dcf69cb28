// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
// 这里 MinIO 充当模型制品仓库：GGUF 文件本地缺失时从桶里拉取。
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/config"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端。
func InitMinIO(cfg config.MinIOConfig) {
	var err error

	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}

	log.Info("MinIO 客户端初始化成功")
}

// EnsureModelArtifact 确保本地存在模型文件。
// 本地已有时直接返回；否则从对象存储下载到 localPath。
func EnsureModelArtifact(ctx context.Context, cfg config.MinIOConfig, localPath string) error {
	if _, err := os.Stat(localPath); err == nil {
		log.Infof("模型文件已存在，跳过下载: %s", localPath)
		return nil
	}

	if MinioClient == nil {
		return fmt.Errorf("model artifact %s not found locally and minio is not configured", localPath)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	log.Infof("正在从 MinIO 下载模型: bucket=%s object=%s", cfg.BucketName, cfg.ModelObject)
	err := MinioClient.FGetObject(ctx, cfg.BucketName, cfg.ModelObject, localPath, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to download model artifact: %w", err)
	}

	log.Infof("模型下载完成: %s", localPath)
	return nil
}
