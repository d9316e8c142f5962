package sysfsattr

import "os"

// osWriteFlags matches how the kernel expects sysfs attribute writes:
// truncate-on-open is wrong for single-value attribute files (some
// reject O_TRUNC), so we open write-only without truncation.
const osWriteFlags = os.O_WRONLY
