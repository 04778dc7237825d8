/*
Package seed merges the human-authored CSV seed files of spec.md §6 into
a MemoryStore at startup, after the durable snapshot has been restored.
Parsing the fixed `ip,port[,fqn[,user[,password]]]` record format and
skipping malformed lines is in scope; everything about what happens to a
seeded row after it becomes an Import (scheduling, probing, promotion) is
pkg/scheduler's concern, not this package's.

Seed files live one per (service type, address family) pair, named
`<service>_<af>.csv` (e.g. `stun_v4.csv`), per §6. A filename that
doesn't match a recognized service is logged and skipped — the original
behavior of aborting the whole merge on the first bad filename is a
documented deviation corrected here (spec.md §9 open questions).
*/
package seed

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cuemby/netwatch/pkg/log"
	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/types"
	"github.com/rs/zerolog"
)

// serviceStems maps a seed filename's leading component to the
// ServiceType it imports for, including the short form spec.md's own
// example ("stun_v4.csv") uses for stun-map.
var serviceStems = map[string]types.ServiceType{
	"stun":         types.ServiceStunMap,
	"stun-map":     types.ServiceStunMap,
	"stun-change":  types.ServiceStunChange,
	"mqtt":         types.ServiceMQTT,
	"turn":         types.ServiceTURN,
	"ntp":          types.ServiceNTP,
}

var afSuffixes = map[string]types.AddressFamily{
	"v4": types.AFv4,
	"v6": types.AFv6,
}

// MergeDir reads every *.csv file in dir and inserts each valid record as
// an Import, enqueuing its group for immediate scheduling. Duplicate
// records (already present in ms) are skipped silently, matching
// insert_import's own ErrDuplicateRecord contract.
func MergeDir(ms *store.MemoryStore, dir string) error {
	logger := log.WithComponent("seed")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("seed: read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".csv" {
			continue
		}
		importType, af, ok := parseFilename(entry.Name())
		if !ok {
			logger.Warn().Str("file", entry.Name()).Msg("seed file name does not match any known service, skipping")
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := mergeFile(ms, logger, path, importType, af); err != nil {
			logger.Error().Err(err).Str("file", path).Msg("seed: skipping unreadable file")
		}
	}
	return nil
}

// parseFilename splits "<stem>_<af>.csv" into its service type and af.
func parseFilename(name string) (types.ServiceType, types.AddressFamily, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	idx := strings.LastIndex(stem, "_")
	if idx < 0 {
		return "", "", false
	}
	service, afPart := stem[:idx], stem[idx+1:]

	st, ok := serviceStems[strings.ToLower(service)]
	if !ok {
		return "", "", false
	}
	af, ok := afSuffixes[strings.ToLower(afPart)]
	if !ok {
		return "", "", false
	}
	return st, af, true
}

func mergeFile(ms *store.MemoryStore, logger zerolog.Logger, path string, importType types.ServiceType, af types.AddressFamily) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	lineNo := 0
	for {
		lineNo++
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			logger.Error().Err(err).Str("file", path).Int("line", lineNo).Msg("seed: skipping malformed line")
			continue
		}
		imp, ok := parseRecord(record, importType, af)
		if !ok {
			logger.Error().Str("file", path).Int("line", lineNo).Msg("seed: skipping malformed record")
			continue
		}

		inserted, err := ms.InsertImport(imp)
		if err != nil {
			continue // duplicates, and only duplicates, are skipped silently (spec.md §6)
		}
		if err := ms.AddWork(types.TableImports, af, inserted.GroupID, []uint64{inserted.ID}, types.StatusInit); err != nil {
			logger.Error().Err(err).Uint64("import_id", inserted.ID).Msg("seed: failed to enqueue imported row")
		}
	}
	return nil
}

// parseRecord parses one ip,port[,fqn[,user[,password]]] line. port must
// be numeric; ip of "0" or "" means resolve-from-fqn, which requires fqn
// to be present.
func parseRecord(fields []string, importType types.ServiceType, af types.AddressFamily) (types.Import, bool) {
	if len(fields) < 2 {
		return types.Import{}, false
	}

	ip := strings.TrimSpace(fields[0])
	if ip == "0" {
		ip = ""
	}

	port, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return types.Import{}, false
	}

	imp := types.Import{ImportType: importType, AF: af, IP: ip, Port: port}

	if len(fields) >= 3 && strings.TrimSpace(fields[2]) != "" {
		fqn := strings.TrimSpace(fields[2])
		imp.FQN = &fqn
	}
	if ip == "" && imp.FQN == nil {
		return types.Import{}, false
	}
	if len(fields) >= 4 && strings.TrimSpace(fields[3]) != "" {
		user := strings.TrimSpace(fields[3])
		imp.User = &user
	}
	if len(fields) >= 5 && strings.TrimSpace(fields[4]) != "" {
		password := strings.TrimSpace(fields[4])
		imp.Password = &password
	}
	return imp, true
}
