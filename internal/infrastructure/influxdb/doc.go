// Package influxdb writes entity manager run statistics to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Writes are
// non-blocking and batched by the client; errors arrive through the
// callback set with SetOnError.
//
// Measurement:
//
//	entity_rename_runs  tags: dry_run, cancelled
//	                    fields: total, processed, skipped, errors, renamed, duration_ms
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint(influxdb.NewRunPoint(stats))
package influxdb
