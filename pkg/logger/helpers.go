package logger

// LogStall logs one unproductive load cycle for a term
func LogStall(term string, stallCount, maxStallCount int) {
	GetLogger().DebugWithFields("load cycle produced no new content", map[string]interface{}{
		"term":            term,
		"stall_count":     stallCount,
		"max_stall_count": maxStallCount,
	})
}

// LogConvergence logs the decision to stop loading a term's feed
func LogConvergence(term string, finalHeight int64, captured int) {
	GetLogger().InfoWithFields("feed converged, stopping load loop", map[string]interface{}{
		"term":         term,
		"final_height": finalHeight,
		"captured":     captured,
	})
}

// LogCheckpointWritten logs a persisted checkpoint
func LogCheckpointWritten(term string, urls int) {
	GetLogger().InfoWithFields("checkpoint written", map[string]interface{}{
		"term": term,
		"urls": urls,
	})
}

// LogDownload logs the outcome of one download attempt
func LogDownload(term, url string, ordinal int, success bool, err error) {
	fields := map[string]interface{}{
		"term":    term,
		"url":     url,
		"ordinal": ordinal,
		"success": success,
	}

	log := GetLogger().WithFields(fields)

	if err != nil {
		log.WithError(err).Error("Download failed")
	} else if success {
		log.Info("Download completed")
	} else {
		log.Warn("Download skipped")
	}
}
