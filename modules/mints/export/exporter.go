// Package export dumps stored mint descriptors as parquet files to an S3
// bucket, for downstream analytics that should not query the serving database.
package export

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
	"github.com/minterscan/mint-indexer/pkg/parquetutils"
	"github.com/xitongsys/parquet-go/writer"
)

const parquetWriterConcurrency = 4

type Config struct {
	Disabled bool   `mapstructure:"disabled"`
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

type Exporter struct {
	dg       datagateway.MintsReaderDataGateway
	s3Client *s3.Client
	bucket   string
	prefix   string
}

func New(ctx context.Context, dg datagateway.MintsReaderDataGateway, conf Config) (*Exporter, error) {
	if conf.Bucket == "" {
		return nil, errors.New("export bucket is required")
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't load aws user config")
	}
	s3Client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if conf.Region != "" {
			o.Region = conf.Region
		}
	})
	return &Exporter{
		dg:       dg,
		s3Client: s3Client,
		bucket:   conf.Bucket,
		prefix:   conf.Prefix,
	}, nil
}

// descriptorRow is the parquet projection of a mint descriptor. Big integers
// are written as decimal strings: parquet INT64 cannot hold uint256 values.
type descriptorRow struct {
	Collection        string `parquet:"name=collection, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Contract          string `parquet:"name=contract, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TokenId           string `parquet:"name=token_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Stage             string `parquet:"name=stage, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Kind              string `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Standard          string `parquet:"name=standard, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Status            string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	StatusReason      string `parquet:"name=status_reason, type=BYTE_ARRAY, convertedtype=UTF8"`
	Currency          string `parquet:"name=currency, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Price             string `parquet:"name=price, type=BYTE_ARRAY, convertedtype=UTF8"`
	MaxMintsPerWallet string `parquet:"name=max_mints_per_wallet, type=BYTE_ARRAY, convertedtype=UTF8"`
	MaxSupply         string `parquet:"name=max_supply, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartTime         int64  `parquet:"name=start_time, type=INT64"`
	EndTime           int64  `parquet:"name=end_time, type=INT64"`
	AllowlistId       string `parquet:"name=allowlist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	UpdatedAt         int64  `parquet:"name=updated_at, type=INT64"`
}

func mapDescriptorToRow(d *entity.MintDescriptor) descriptorRow {
	row := descriptorRow{
		Collection:        d.Collection.Hex(),
		Contract:          d.Contract.Hex(),
		Stage:             string(d.Stage),
		Kind:              string(d.Kind),
		Standard:          string(d.Standard),
		Status:            string(d.Status),
		StatusReason:      d.StatusReason,
		Currency:          d.Currency.Hex(),
		Price:             bigString(d.Price),
		MaxMintsPerWallet: bigString(d.MaxMintsPerWallet),
		MaxSupply:         bigString(d.MaxSupply),
		UpdatedAt:         d.UpdatedAt.Unix(),
	}
	if d.TokenId != nil {
		row.TokenId = d.TokenId.String()
	}
	if d.StartTime != nil {
		row.StartTime = d.StartTime.Unix()
	}
	if d.EndTime != nil {
		row.EndTime = d.EndTime.Unix()
	}
	if d.AllowlistId != nil {
		row.AllowlistId = d.AllowlistId.Hex()
	}
	return row
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// ExportCollection writes all of the collection's stored descriptors to one
// parquet object and returns the object key.
func (e *Exporter) ExportCollection(ctx context.Context, collection common.Address) (string, error) {
	descriptors := make([]*entity.MintDescriptor, 0)
	for _, standard := range []entity.MintStandard{entity.MintStandardFoundation, entity.MintStandardZora} {
		batch, err := e.dg.GetMintDescriptors(ctx, collection, standard, nil, nil)
		if err != nil {
			return "", errors.Wrapf(err, "can't load %s descriptors for %s", standard, collection)
		}
		descriptors = append(descriptors, batch...)
	}

	payload, err := encodeParquet(descriptors)
	if err != nil {
		return "", errors.WithStack(err)
	}

	key := fmt.Sprintf("%sdate=%s/%s.parquet", e.prefix, time.Now().UTC().Format("2006-01-02"), collection.Hex())
	uploader := manager.NewUploader(e.s3Client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	}); err != nil {
		return "", errors.Wrapf(err, "can't upload export to s3://%s/%s", e.bucket, key)
	}

	logger.InfoContext(ctx, "Exported mint descriptors",
		slogx.Stringer("collection", collection),
		slogx.Int("descriptors", len(descriptors)),
		slogx.String("key", key),
	)
	return key, nil
}

func encodeParquet(descriptors []*entity.MintDescriptor) ([]byte, error) {
	buffer := parquetutils.NewBuffer()
	parquetWriter, err := writer.NewParquetWriter(buffer, new(descriptorRow), parquetWriterConcurrency)
	if err != nil {
		return nil, errors.Wrap(err, "can't create parquet writer")
	}
	for _, d := range descriptors {
		if err := parquetWriter.Write(mapDescriptorToRow(d)); err != nil {
			return nil, errors.Wrap(err, "can't write parquet row")
		}
	}
	if err := parquetWriter.WriteStop(); err != nil {
		return nil, errors.Wrap(err, "can't finalize parquet file")
	}
	return buffer.Bytes(), nil
}
