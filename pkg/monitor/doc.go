/*
Package monitor tracks a manager's live state and periodically publishes it.

A Point accumulates the same facts original_source/workers/MonitoringPoint.py
keeps on its manager: queue depths, per-worker processing rates and counts,
per-worker status, and a CPU/memory sample of the supervisor's own OS
process via github.com/shirou/gopsutil/v3. A Reporter samples a Point on a
fixed interval and publishes the result, either broadcast (pidtarget "*")
or directed at whoever asked via a getstatus command.
*/
package monitor
